package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/cognify-learn/cognify/pkg/credstore"
)

// PersistentJar is an http.CookieJar that mirrors the refresh cookie into a
// credstore.Store, so a new process can renew without a fresh login.
type PersistentJar struct {
	jar    *cookiejar.Jar
	store  credstore.Store
	logger *slog.Logger
}

// NewPersistentJar restores any saved refresh cookie for baseURL.
func NewPersistentJar(ctx context.Context, store credstore.Store, baseURL string, logger *slog.Logger) (*PersistentJar, error) {
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("authsdk: parse base url: %w", err)
	}

	pj := &PersistentJar{jar: jar, store: store, logger: logger}

	v, err := store.Load(ctx, credstore.RefreshCookieKey)
	switch {
	case err == nil && v != "":
		jar.SetCookies(u, []*http.Cookie{{Name: RefreshCookieName, Value: v, Path: "/", HttpOnly: true}})
	case err != nil && !errors.Is(err, credstore.ErrNotFound):
		logger.Warn("stored refresh cookie unreadable, starting without it", "err", err)
	}
	return pj, nil
}

func (p *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return p.jar.Cookies(u)
}

// SetCookies stores cookies and mirrors the refresh cookie. An expired or
// emptied refresh cookie removes the stored copy.
func (p *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	p.jar.SetCookies(u, cookies)

	for _, c := range cookies {
		if c.Name != RefreshCookieName {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		if c.Value == "" || c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			err = p.store.Delete(ctx, credstore.RefreshCookieKey)
		} else {
			err = p.store.Save(ctx, credstore.RefreshCookieKey, c.Value)
		}
		cancel()

		if err != nil {
			p.logger.Warn("failed to persist refresh cookie", "err", err)
		}
	}
}
