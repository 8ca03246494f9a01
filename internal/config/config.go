package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// TestWebhookSecret is the fixed secret the webhook handler falls back to in Test mode.
// Together with Test mode it enables the signature bypass; it must never reach production.
const TestWebhookSecret = "test_webhook_secret"

// Mode decides whether test-only surfaces (verification endpoint, webhook bypass) exist.
// It is resolved once in Load and passed explicitly to the components that care.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeTest       Mode = "test"
)

func (m Mode) IsTest() bool { return m == ModeTest }

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Session SessionConfig
	Webhook WebhookConfig
}

type AppConfig struct {
	Env  string
	Port int
	Mode Mode

	// Raw inputs for Mode; kept so Validate can report the exact combination.
	TestModeFlag   bool
	CI             bool
	TestInvocation string
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	// Path is the SQLite database file (sqlite driver only).
	Path string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. An empty Host disables webhook delivery de-duplication.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type SessionConfig struct {
	// JWKSURL points at the identity provider's key set (RS256 session tokens).
	JWKSURL string
	// JWTSecret verifies HS256 session tokens; used locally and in tests.
	JWTSecret  string
	Issuer     string
	CookieName string
	SignInURL  string
}

type WebhookConfig struct {
	Secret string
}

func Load() (Config, error) {
	var (
		c   Config
		env envReader
	)

	c.App.Env = env.str("APP_ENV")
	c.App.Port = env.requiredInt("APP_PORT")
	c.App.TestModeFlag = env.flag("APP_TEST_MODE")
	c.App.CI = env.flag("CI")
	c.App.TestInvocation = env.str("TEST_INVOCATION")
	c.App.Mode = ResolveMode(c.App.TestModeFlag, c.App.CI, c.App.TestInvocation)

	c.DB.Driver = env.str("DB_DRIVER")
	c.DB.Path = env.str("DB_PATH")
	if c.DB.Driver != DriverSQLite {
		c.DB.Host = env.str("DB_HOST")
		c.DB.Port = env.requiredInt("DB_PORT")
		c.DB.User = env.str("DB_USER")
		c.DB.Password = env.secret("DB_PASSWORD")
		c.DB.Name = env.str("DB_NAME")
		c.DB.SSLMode = env.str("DB_SSLMODE")
	}

	if c.Redis.Host = env.str("REDIS_HOST"); c.Redis.Host != "" {
		c.Redis.Port = env.requiredInt("REDIS_PORT")
		c.Redis.Password = env.secret("REDIS_PASSWORD")
	}

	c.Session = SessionConfig{
		JWKSURL:    env.str("SESSION_JWKS_URL"),
		JWTSecret:  env.secret("SESSION_JWT_SECRET"),
		Issuer:     env.str("SESSION_ISSUER"),
		CookieName: env.str("SESSION_COOKIE"),
		SignInURL:  env.str("SIGN_IN_URL"),
	}
	c.Webhook.Secret = env.secret("CLERK_WEBHOOK_SECRET")

	if err := joinErrors(env.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ResolveMode returns ModeTest for an explicit test flag, or for CI runs whose
// invocation marker names a test task. Everything else is production.
func ResolveMode(testFlag, ci bool, invocation string) Mode {
	if testFlag {
		return ModeTest
	}
	if ci && strings.Contains(strings.ToLower(invocation), "test") {
		return ModeTest
	}
	return ModeProduction
}

// Validate checks the configuration and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, test, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Mode == "" {
		c.App.Mode = ModeProduction
	}
	// A deployed environment must never carry test mode: it would expose the
	// verification endpoint and the webhook signature bypass.
	if c.IsProduction() && c.App.Mode.IsTest() {
		errs = append(errs, fmt.Errorf("test mode is enabled in production (APP_TEST_MODE=%t CI=%t TEST_INVOCATION=%q)",
			c.App.TestModeFlag, c.App.CI, c.App.TestInvocation))
	}

	if c.DB.Driver == "" {
		c.DB.Driver = DriverPostgres
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_DRIVER sqlite is not allowed in production"))
		}
		if c.DB.Path == "" {
			c.DB.Path = "zephyr.db"
		}
	case DriverPostgres:
		errs = append(errs, c.validatePostgres()...)
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of postgres, sqlite, got %q", c.DB.Driver))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Session.JWKSURL == "" && c.Session.JWTSecret == "" {
		errs = append(errs, errors.New("one of SESSION_JWKS_URL or SESSION_JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Session.JWKSURL == "" {
		errs = append(errs, errors.New("SESSION_JWKS_URL is required in production"))
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "__session"
	}
	if c.Session.SignInURL == "" {
		c.Session.SignInURL = "/sign-in"
	}

	if c.Webhook.Secret == "" {
		if c.App.Mode.IsTest() {
			c.Webhook.Secret = TestWebhookSecret
		} else {
			errs = append(errs, errors.New("CLERK_WEBHOOK_SECRET is required"))
		}
	}

	return joinErrors(errs)
}

func (c *Config) validatePostgres() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// WebhookBypass reports whether webhook signature verification is skipped.
// Only the fixed test secret in Test mode qualifies.
func (c Config) WebhookBypass() bool {
	return c.App.Mode.IsTest() && c.Webhook.Secret == TestWebhookSecret
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DSN returns the data source name for the configured driver.
// Avoid logging this string; it contains secrets.
func (c Config) DSN() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// SQLDriverName maps DB_DRIVER to the registered database/sql driver.
func (c Config) SQLDriverName() string {
	if c.DB.Driver == DriverSQLite {
		return "sqlite"
	}
	return "pgx"
}

func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// envReader reads variables and collects parse errors so Load reports them together.
type envReader struct {
	errs []error
}

func (r *envReader) str(key string) string { return strings.TrimSpace(os.Getenv(key)) }

// secret is read verbatim; surrounding whitespace may be part of the value.
func (r *envReader) secret(key string) string { return os.Getenv(key) }

func (r *envReader) requiredInt(key string) int {
	v := r.str(key)
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%s is required", key))
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

// flag treats anything strconv.ParseBool rejects as false.
func (r *envReader) flag(key string) bool {
	v, _ := strconv.ParseBool(r.str(key))
	return v
}

var (
	validEnvs     = []string{"local", "dev", "test", "staging", "production"}
	validSSLModes = []string{"disable", "require", "verify-ca", "verify-full"}
)

func isValidEnv(v string) bool     { return slices.Contains(validEnvs, v) }
func isValidSSLMode(v string) bool { return slices.Contains(validSSLModes, v) }

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
