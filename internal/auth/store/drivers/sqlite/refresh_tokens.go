package sqlite

import (
	"context"
	"time"

	"github.com/cognify-learn/cognify/internal/auth/domain"
	"github.com/cognify-learn/cognify/internal/auth/store/drivers/sqlite/gen"
)

type refreshTokensRepo struct {
	q *gen.Queries
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := time.Now().UTC()
	return mapConstraint(r.q.CreateRefreshToken(ctx, gen.CreateRefreshTokenParams{
		ID:        t.ID,
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		SessionID: t.SessionID,
		ExpiresAt: t.ExpiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row, err := r.q.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	return r.q.RevokeRefreshToken(ctx, gen.RevokeRefreshTokenParams{
		UpdatedAt: time.Now().UTC(),
		TokenHash: hash,
	})
}

func (r *refreshTokensRepo) RevokeSession(ctx context.Context, sessionID string) error {
	return r.q.RevokeSession(ctx, gen.RevokeSessionParams{
		UpdatedAt: time.Now().UTC(),
		SessionID: sessionID,
	})
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return r.q.DeleteExpiredRefreshTokens(ctx, time.Now().UTC())
}
