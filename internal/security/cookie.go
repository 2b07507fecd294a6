package security

import (
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName = "session_token"
	CSRFCookieName    = "csrf_token"
)

type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	mode := http.SameSiteLaxMode
	switch strings.ToLower(sameSite) {
	case "strict":
		mode = http.SameSiteStrictMode
	case "none":
		mode = http.SameSiteNoneMode
	}
	return &CookieManager{Domain: domain, Secure: secure, SameSite: mode}
}

func (m *CookieManager) SetSessionCookies(w http.ResponseWriter, session, csrf string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(SessionCookieName, session, ttl, true))
	m.SetCSRFCookie(w, csrf, ttl)
}

// SetCSRFCookie sets the double-submit token cookie. It is not HttpOnly.
func (m *CookieManager) SetCSRFCookie(w http.ResponseWriter, csrf string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(CSRFCookieName, csrf, ttl, false))
}

func (m *CookieManager) ClearSessionCookies(w http.ResponseWriter) {
	for _, c := range []struct {
		name     string
		httpOnly bool
	}{
		{SessionCookieName, true},
		{CSRFCookieName, false},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     "/",
			Domain:   m.Domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: c.httpOnly,
			Secure:   m.Secure,
			SameSite: m.SameSite,
		})
	}
}

func (m *CookieManager) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: httpOnly,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	}
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
