package routes

import (
	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/handlers"
	"github.com/BradenHooton/vaultgate/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles the vault HTTP handlers
type Handlers struct {
	Security  *handlers.SecurityHandler
	Accounts  *handlers.AccountHandler
	Groups    *handlers.GroupHandler
	Emails    *handlers.EmailHandler
	Dashboard *handlers.DashboardHandler
	Transfer  *handlers.TransferHandler
}

// RegisterRoutes registers all vault routes. Every route requires a bearer
// token; PIN guesses are additionally limited per client IP.
func RegisterRoutes(router chi.Router, h Handlers, tokenManager *auth.TokenManager, limits middleware.VaultRateLimitConfig) {
	pinByIP := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: limits.PINVerifyPerMinute})

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(middleware.NoStore)

		r.Get("/security/status", h.Security.Status)
		r.Post("/security/lock", h.Security.Lock)

		r.Group(func(r chi.Router) {
			r.Use(pinByIP)
			r.Use(middleware.RateLimitByUserID(limits, "pin"))
			r.Post("/security/pin", h.Security.SetPIN)
			r.Post("/security/unlock", h.Security.Unlock)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitVault(limits))

			r.Get("/dashboard", h.Dashboard.Get)
			r.Get("/export", h.Transfer.Export)
			r.Post("/import", h.Transfer.Import)

			h.Accounts.RegisterRoutes(r)
			h.Groups.RegisterRoutes(r)
			h.Emails.RegisterRoutes(r)
		})
	})
}
