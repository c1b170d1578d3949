package http

import (
	"net/http"
	"time"

	"github.com/cognify-learn/cognify/pkg/authsdk"
)

// CookieConfig controls the refresh cookie. Secure must be on behind TLS;
// local development over plain http needs it off.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return c.SameSite
}

// set writes the refresh cookie valid until expires.
func (c CookieConfig) set(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    value,
		Path:     c.path(),
		Expires:  expires.UTC(),
		MaxAge:   max(int(time.Until(expires).Seconds()), 1),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// clear tells the browser to drop the refresh cookie.
func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    "",
		Path:     c.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(authsdk.RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
