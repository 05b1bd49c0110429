package auth

import (
	"net/http"
	"strings"
)

// UnlockCookieName is the session unlock flag cookie
const UnlockCookieName = "vault_unlocked"

// CookieConfig controls the attributes of the unlock cookie. An empty Domain
// scopes it to the current host. SameSite is "strict", "lax" or "none".
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite string
}

func (c CookieConfig) build(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     UnlockCookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSiteMode(c.SameSite),
	}
}

// SetUnlockCookie writes the flag as a browser-session cookie (no Max-Age).
func SetUnlockCookie(w http.ResponseWriter, token string, config CookieConfig) {
	http.SetCookie(w, config.build(token, 0))
}

func ClearUnlockCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, config.build("", -1))
}

// GetUnlockCookie returns the flag value, or "" when the request has none.
func GetUnlockCookie(r *http.Request) string {
	if c, err := r.Cookie(UnlockCookieName); err == nil {
		return c.Value
	}
	return ""
}

func sameSiteMode(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	}
	return http.SameSiteDefaultMode
}
