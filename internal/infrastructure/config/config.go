// Package config loads application configuration from environment
// variables and an optional env file via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups all application configuration.
type Config struct {
	App    AppConfig
	DB     DBConfig
	HTTP   HTTPConfig
	Auth   AuthConfig
	Policy PolicyConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// Development reports whether the app runs in development mode.
func (c AppConfig) Development() bool {
	return c.Env == "development"
}

// DBConfig holds PostgreSQL settings. DatabaseURL, when set, wins over
// the individual fields.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
}

// ConnectionString returns the DSN to use.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds service-token authentication settings. The ledger
// has no human users; callers are owning modules presenting JWTs.
type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	TokenTTL           time.Duration
	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration
}

// PolicyConfig holds negative-stock policy rules. Each rule is a CEL
// expression over transaction_type, product_id, location_id and
// tracking_mode; an OUT may drive stock negative when any rule matches.
// No rules means strict everywhere.
type PolicyConfig struct {
	AllowNegativeRules []string
}

// Load reads configuration from the environment and an optional
// config.env file. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			MaxConns:    int32(v.GetInt("DB_MAX_CONNS")),
			MinConns:    int32(v.GetInt("DB_MIN_CONNS")),
		},
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ReadTimeout:     v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("HTTP_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("HTTP_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		Auth: AuthConfig{
			JWTSecret:          v.GetString("JWT_SECRET"),
			JWTIssuer:          v.GetString("JWT_ISSUER"),
			TokenTTL:           v.GetDuration("JWT_TOKEN_TTL"),
			IdempotencyEnabled: v.GetBool("IDEMPOTENCY_ENABLED"),
			IdempotencyTTL:     v.GetDuration("IDEMPOTENCY_TTL"),
		},
		Policy: PolicyConfig{
			AllowNegativeRules: splitRules(v.GetString("POLICY_ALLOW_NEGATIVE_RULES")),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.App.Env == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "stockledger")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "stockledger")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("HTTP_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "stockledger")
	v.SetDefault("JWT_TOKEN_TTL", time.Hour)
	v.SetDefault("IDEMPOTENCY_ENABLED", true)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)

	v.SetDefault("POLICY_ALLOW_NEGATIVE_RULES", "")
}

// splitRules parses a semicolon-separated rule list.
func splitRules(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	rules := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			rules = append(rules, trimmed)
		}
	}
	return rules
}
