package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/vaultgate/internal/auth"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// VaultRateLimitConfig splits the per-user budget of authenticated routes.
type VaultRateLimitConfig struct {
	ReadPerMinute      int
	WritePerMinute     int
	PINVerifyPerMinute int
}

// DefaultVaultRateLimit derives the read, write and PIN budgets from a
// single requests-per-minute setting.
func DefaultVaultRateLimit(requestsPerMinute, pinVerifyPerMinute int) VaultRateLimitConfig {
	write := requestsPerMinute / 5
	if write < 1 {
		write = 1
	}
	return VaultRateLimitConfig{
		ReadPerMinute:      requestsPerMinute,
		WritePerMinute:     write,
		PINVerifyPerMinute: pinVerifyPerMinute,
	}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByUserID limits authenticated callers per user within a named
// bucket ("read", "write" or "pin"). Requests without a user fall back to
// the client IP.
func RateLimitByUserID(config VaultRateLimitConfig, bucket string) func(next http.Handler) http.Handler {
	limit := config.ReadPerMinute
	switch bucket {
	case "write":
		limit = config.WritePerMinute
	case "pin":
		limit = config.PINVerifyPerMinute
	}
	if limit <= 0 {
		limit = 1
	}

	return httprate.Limit(
		limit,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if userID := auth.GetUserID(r); userID != "" {
				return bucket + ":user:" + userID, nil
			}
			ip, err := httprate.KeyByRealIP(r)
			if err != nil {
				return "", err
			}
			return bucket + ":ip:" + ip, nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitVault charges safe methods to the read bucket and everything
// else to the write bucket.
func RateLimitVault(config VaultRateLimitConfig) func(next http.Handler) http.Handler {
	read := RateLimitByUserID(config, "read")
	write := RateLimitByUserID(config, "write")

	return func(next http.Handler) http.Handler {
		readNext, writeNext := read(next), write(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				readNext.ServeHTTP(w, r)
			default:
				writeNext.ServeHTTP(w, r)
			}
		})
	}
}
