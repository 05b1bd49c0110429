package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/vaultgate/pkg/cipher"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Vault    VaultConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	CookieDomain   string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
}

// VaultConfig holds the settings of the vault core.
type VaultConfig struct {
	EncryptionKey          string
	AccountsPageSize       int
	GroupsPageSize         int
	EmailsPageSize         int
	StoreTimeout           time.Duration
	PINVerifyRatePerMinute int
	RequestsPerMinute      int
}

// EmailConfig configures lockout alerts. Alerts are only logged when
// FromAddress is empty.
type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

// Enabled reports whether alerts are delivered through SES.
func (c EmailConfig) Enabled() bool {
	return c.FromAddress != ""
}

// Load reads .env (when present) and the environment. Malformed numbers and
// durations are errors, not silent defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	e := &envReader{}
	env := e.text("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              e.text("DB_HOST", "localhost"),
			Port:              e.integer("DB_PORT", 5432),
			User:              e.text("DB_USER", "postgres"),
			Password:          e.required("DB_PASSWORD"),
			Name:              e.text("DB_NAME", "vaultgate"),
			SSLMode:           e.text("DB_SSLMODE", "disable"),
			MaxConns:          int32(e.integer("DB_MAX_CONNS", 25)),
			MinConns:          int32(e.integer("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   e.duration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   e.duration("DB_MAX_CONN_IDLE_TIME", time.Minute),
			HealthCheckPeriod: e.duration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		},
		Server: ServerConfig{
			Port:           e.text("PORT", "8080"),
			Env:            env,
			LogLevel:       e.text("LOG_LEVEL", "info"),
			AllowedOrigins: allowedOrigins(env, e.text("ALLOWED_ORIGINS", "")),
			TrustedProxies: parseList(e.text("TRUSTED_PROXIES", "")),
			CookieDomain:   e.text("COOKIE_DOMAIN", ""),
			ReadTimeout:    e.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   e.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    e.duration("SERVER_IDLE_TIMEOUT", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:         e.required("JWT_SECRET"),
			AccessTokenExpiry: e.duration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		},
		Vault: VaultConfig{
			EncryptionKey:          e.required("ENCRYPTION_KEY"),
			AccountsPageSize:       e.integer("ACCOUNTS_PAGE_SIZE", 12),
			GroupsPageSize:         e.integer("GROUPS_PAGE_SIZE", 8),
			EmailsPageSize:         e.integer("EMAILS_PAGE_SIZE", 10),
			StoreTimeout:           e.duration("STORE_TIMEOUT", 5*time.Second),
			PINVerifyRatePerMinute: e.integer("PIN_VERIFY_RATE_PER_MINUTE", 10),
			RequestsPerMinute:      e.integer("VAULT_REQUESTS_PER_MINUTE", 300),
		},
		Email: EmailConfig{
			AWSRegion:   e.text("AWS_REGION", "us-east-1"),
			FromAddress: e.text("EMAIL_FROM_ADDRESS", ""),
		},
	}
	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}

	if err := validateJWTSecret(cfg.Auth.JWTSecret, env); err != nil {
		return nil, err
	}
	if _, err := cipher.ParseKey(cfg.Vault.EncryptionKey); err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is invalid: %w", err)
	}
	if err := cfg.Vault.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (v *VaultConfig) validate() error {
	for name, size := range map[string]int{
		"ACCOUNTS_PAGE_SIZE": v.AccountsPageSize,
		"GROUPS_PAGE_SIZE":   v.GroupsPageSize,
		"EMAILS_PAGE_SIZE":   v.EmailsPageSize,
	} {
		if size < 1 || size > 100 {
			return fmt.Errorf("%s must be between 1 and 100 (got %d)", name, size)
		}
	}
	if v.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// IsProduction reports whether cookies must be marked Secure.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// envReader reads variables and collects every problem so a misconfigured
// deployment reports them all at once.
type envReader struct {
	errs []error
}

func (e *envReader) text(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) required(key string) string {
	v := e.text(key, "")
	if v == "" {
		e.errs = append(e.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (e *envReader) integer(key string, def int) int {
	raw := e.text(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be an integer (got %q)", key, raw))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.text(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a duration like 15s (got %q)", key, raw))
		return def
	}
	return d
}

func parseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// allowedOrigins uses ALLOWED_ORIGINS in production and the usual local dev
// servers otherwise.
func allowedOrigins(env, raw string) []string {
	if env == "production" {
		return parseList(raw)
	}
	origins := make([]string, 0, 6)
	for _, host := range []string{"localhost", "127.0.0.1"} {
		for _, port := range []string{"3000", "5173", "8080"} {
			origins = append(origins, "http://"+host+":"+port)
		}
	}
	return origins
}
