package logger

import (
	"net/url"
	"strings"
)

// SanitizedEmail masks an address for logs: "alice@example.com" becomes
// "a****@*******.com". Only the first local character and the TLD survive.
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	masked := local[:1] + strings.Repeat("*", len(local)-1) + "@"
	if dot := strings.LastIndex(domain, "."); dot > 0 {
		return masked + strings.Repeat("*", dot) + domain[dot:]
	}
	return masked + domain
}

var sensitiveKeys = []string{"password", "pin", "token", "secret", "totp", "email", "auth"}

// HasSensitiveParam reports whether any query parameter name looks like it
// carries a credential. Callers redact the whole query when it does.
func HasSensitiveParam(rawQuery string) bool {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// unparseable queries are not logged either
		return rawQuery != ""
	}
	for key := range values {
		key = strings.ToLower(key)
		for _, s := range sensitiveKeys {
			if strings.Contains(key, s) {
				return true
			}
		}
	}
	return false
}
