package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/database"
	"github.com/BradenHooton/vaultgate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/vaultgate/internal/middleware"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/BradenHooton/vaultgate/internal/repositories"
	"github.com/BradenHooton/vaultgate/internal/routes"
	"github.com/BradenHooton/vaultgate/internal/services"
	"github.com/BradenHooton/vaultgate/pkg/cipher"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	pkglogger "github.com/BradenHooton/vaultgate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

const totpIssuer = "vaultgate"

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command) error {
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if serveMigrate {
		if err := db.Migrate(cmd.Context(), "up"); err != nil {
			return err
		}
	}

	vaultCipher, err := cipher.NewFromSecret(cfg.Vault.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize vault cipher: %w", err)
	}

	notifier, err := newLockoutNotifier(cmd.Context())
	if err != nil {
		return err
	}

	router, err := newRouter(db, vaultCipher, notifier)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newLockoutNotifier sends alerts through SES when a sender is configured and
// only logs them otherwise.
func newLockoutNotifier(ctx context.Context) (services.LockoutNotifier, error) {
	if !cfg.Email.Enabled() {
		logger.Info("lockout alerts will be logged only, EMAIL_FROM_ADDRESS is not set")
		return services.NewLogLockoutNotifier(logger), nil
	}

	notifier, err := services.NewSESLockoutNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	return notifier, nil
}

func newRouter(db *database.DB, vaultCipher *cipher.Cipher, notifier services.LockoutNotifier) (http.Handler, error) {
	storeTimeout := cfg.Vault.StoreTimeout
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	emailRepo := repositories.NewEmailIdentityRepository(db)
	securityRepo := repositories.NewSecurityRepository(db)

	// Managers
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	totpManager := auth.NewTOTPManager(totpIssuer)
	unlockManager, err := auth.NewUnlockManager(vaultCipher, securityRepo, auth.CookieConfig{
		Domain:   cfg.Server.CookieDomain,
		Secure:   cfg.Server.IsProduction(),
		SameSite: "lax",
	}, logger)
	if err != nil {
		return nil, err
	}
	ports := func(w http.ResponseWriter, r *http.Request, userID string) services.SessionLockPort {
		return unlockManager.For(w, r, userID)
	}

	// Services
	pinService := services.NewPINService(securityRepo, vaultCipher, notifier, auditLogger, logger, services.PINConfig{
		StoreTimeout: storeTimeout,
	})
	gate := services.NewSessionGate(pinService, logger)
	pageSizes := query.PageSizes{
		Accounts: cfg.Vault.AccountsPageSize,
		Groups:   cfg.Vault.GroupsPageSize,
		Emails:   cfg.Vault.EmailsPageSize,
	}
	listingService := services.NewListingService(accountRepo, groupRepo, emailRepo, gate, pageSizes, storeTimeout, logger)
	accountService := services.NewAccountService(accountRepo, groupRepo, emailRepo, vaultCipher, totpManager, gate, auditLogger, storeTimeout, logger)
	groupService := services.NewGroupService(groupRepo, auditLogger, storeTimeout, logger)
	identityService := services.NewIdentityService(emailRepo, auditLogger, storeTimeout, logger)
	bulkService := services.NewBulkService(accountRepo, groupRepo, auditLogger, storeTimeout, logger)
	transferService := services.NewTransferService(accountRepo, groupRepo, emailRepo, vaultCipher, gate, auditLogger, storeTimeout, logger)

	// Handlers
	h := routes.Handlers{
		Security:  handlers.NewSecurityHandler(gate, pinService, ports),
		Accounts:  handlers.NewAccountHandler(listingService, accountService, bulkService, ports),
		Groups:    handlers.NewGroupHandler(listingService, groupService, bulkService, ports),
		Emails:    handlers.NewEmailHandler(listingService, identityService, ports),
		Dashboard: handlers.NewDashboardHandler(listingService, ports),
		Transfer:  handlers.NewTransferHandler(transferService, ports),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, pkghttp.NewIPConfig(cfg.Server.TrustedProxies)))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/health", healthHandler(db))

	limits := middlewareCustom.DefaultVaultRateLimit(cfg.Vault.RequestsPerMinute, cfg.Vault.PINVerifyRatePerMinute)
	routes.RegisterRoutes(router, h, tokenManager, limits)

	return router, nil
}

func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}
