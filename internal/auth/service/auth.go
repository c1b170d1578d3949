package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cognify-learn/cognify/internal/auth/domain"
	"github.com/cognify-learn/cognify/internal/auth/store"
	"github.com/cognify-learn/cognify/pkg/cryptox"
	"github.com/cognify-learn/cognify/pkg/idx"
	"github.com/cognify-learn/cognify/pkg/jwtx"
	"github.com/cognify-learn/cognify/pkg/slogx"
	"github.com/google/uuid"
)

var (
	ErrMissingFields      = errors.New("missing_fields")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrRefreshExpired     = errors.New("refresh_token_expired")
	ErrEmailTaken         = errors.New("email_taken")
	ErrUsernameTaken      = errors.New("username_taken")
)

// SignupInput is a registration request after transport decoding.
type SignupInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// AuthService issues and rotates sessions. Each session is an access token
// plus an opaque refresh token; only the refresh token's fingerprint is
// stored.
type AuthService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signup registers a STUDENT account and signs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.IssuedSession, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        domain.DefaultRoles(),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			if strings.Contains(err.Error(), "email") {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID))
	return s.issue(ctx, s.Store, u, uuid.NewString())
}

// Login authenticates handle, which may be a username or an email.
func (s *AuthService) Login(ctx context.Context, handle, password string) (*domain.IssuedSession, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.findByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("password verification failed", slog.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, s.Store, u, uuid.NewString())
}

func (s *AuthService) findByHandle(ctx context.Context, handle string) (domain.User, error) {
	if strings.Contains(handle, "@") {
		u, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(handle))
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return u, err
		}
	}
	return s.Store.Users().GetUserByUsername(ctx, handle)
}

// Refresh rotates refreshOpaque: the presented token is revoked and a new
// pair is issued in the same session. Presenting an already revoked token
// means it leaked, so the whole session is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshOpaque string) (*domain.IssuedSession, error) {
	if refreshOpaque == "" {
		return nil, ErrInvalidRefresh
	}
	now := s.now()
	l := slogx.FromContext(ctx)
	fp := cryptox.FingerprintToken(refreshOpaque)

	var out *domain.IssuedSession
	var reused *domain.RefreshToken
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if rt.Revoked {
			reused = &rt
			return ErrInvalidRefresh
		}
		if !now.Before(rt.ExpiresAt) {
			return ErrRefreshExpired
		}

		u, err := tx.Users().GetUserByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}
		out, err = s.issue(ctx, tx, u, rt.SessionID)
		return err
	})
	if reused != nil {
		l.Warn("revoked refresh token presented, revoking session",
			slog.String("user_id", reused.UserID),
			slog.String("sid", reused.SessionID),
		)
		if rerr := s.Store.RefreshTokens().RevokeSession(ctx, reused.SessionID); rerr != nil {
			l.Error("failed to revoke session", slog.Any("error", rerr))
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Logout revokes refreshOpaque. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshOpaque string) error {
	if refreshOpaque == "" {
		return nil
	}
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(refreshOpaque))
}

// issue signs an access token for u and stores a fresh refresh token in
// session sid. repo is either the store or an open transaction.
func (s *AuthService) issue(ctx context.Context, repo store.Store, u domain.User, sid string) (*domain.IssuedSession, error) {
	now := s.now()

	claims := jwtx.NewAccessClaims(jwtx.Subject{
		ID:       u.ID,
		SID:      sid,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles,
	}, s.Issuer, s.Audience, s.AccessTTL, now)

	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		SessionID: sid,
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if err := repo.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.IssuedSession{
		AccessToken:      access,
		RefreshToken:     refreshOpaque,
		RefreshExpiresAt: rt.ExpiresAt,
		User:             u,
	}, nil
}
