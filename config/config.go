// Package config provides configuration management for the postboard application.
// It handles loading and validation of configuration values from environment variables,
// with support for required variables, default values, and collective error reporting:
// every problem found is reported at once instead of failing on the first one.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPoolSize = 5
	maxPoolSize = 100
)

// DatabaseConfig represents configuration for the PostgreSQL connection pool.
// When URL is set it wins over the individual connection fields.
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxSize         int
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
}

// DSN returns the connection string used by both pgx and golang-migrate.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string   // Port for the HTTP server
	AllowedOrigins  []string // CORS allowed origins
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig selects the slog handler and minimum level.
type LogConfig struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// SecurityConfig holds settings for credential storage.
type SecurityConfig struct {
	PasswordHashCost int // bcrypt cost
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB            *DatabaseConfig
	Server        *ServerConfig
	Log           *LogConfig
	Security      *SecurityConfig
	MigrationsDir string // optional; empty means the migrations embedded in the binary
}

// envLoader reads environment variables and accumulates every problem it finds.
type envLoader struct {
	lookup func(string) (string, bool)
	errs   *multierror.Error
}

func (l *envLoader) fail(format string, args ...any) {
	l.errs = multierror.Append(l.errs, fmt.Errorf(format, args...))
}

func (l *envLoader) required(key string) string {
	value, exists := l.lookup(key)
	if !exists || value == "" {
		l.fail("missing required environment variable: %s", key)
		return ""
	}
	return value
}

func (l *envLoader) optional(key, defaultValue string) string {
	if value, exists := l.lookup(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func (l *envLoader) optionalInt(key string, defaultValue int) int {
	valueStr, exists := l.lookup(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		l.fail("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err)
		return defaultValue
	}
	return valueInt
}

// `time.ParseDuration` expects a string like "15m", "1h30s".
func (l *envLoader) optionalDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := l.lookup(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		l.fail("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err)
		return defaultValue
	}
	return d
}

func (l *envLoader) optionalList(key string, defaultValue []string) []string {
	raw, exists := l.lookup(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (l *envLoader) logLevel(key string) slog.Level {
	raw := l.optional(key, "info")
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		l.fail("invalid value for %s: %v", key, err)
		return slog.LevelInfo
	}
	return level
}

func (l *envLoader) database() *DatabaseConfig {
	cfg := &DatabaseConfig{
		URL:             l.optional("DATABASE_URL", ""),
		SSLMode:         l.optional("DB_SSLMODE", "disable"),
		MaxSize:         l.optionalInt("DB_POOL_SIZE", 10),
		MaxConnIdleTime: l.optionalDuration("DB_MAX_CONN_IDLE_TIME", 10*time.Minute),
		MaxConnLifetime: l.optionalDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
	}
	if cfg.URL == "" {
		// Without a connection string the individual pieces become mandatory.
		cfg.User = l.required("DB_USER")
		cfg.Password = l.required("DB_PASSWORD")
		cfg.DBName = l.required("DB_NAME")
		cfg.Host = l.optional("DB_HOST", "localhost")
		cfg.Port = l.optionalInt("DB_PORT", 5432)
	}
	if cfg.MaxSize < minPoolSize || cfg.MaxSize > maxPoolSize {
		l.fail("DB_POOL_SIZE must be between %d and %d, got %d", minPoolSize, maxPoolSize, cfg.MaxSize)
	}
	return cfg
}

// LoadConfig creates an AppConfig from the process environment.
func LoadConfig() (*AppConfig, error) {
	return load(os.LookupEnv)
}

// load is LoadConfig with an injectable lookup, which keeps tests free of global state.
func load(lookup func(string) (string, bool)) (*AppConfig, error) {
	l := &envLoader{lookup: lookup}

	cfg := &AppConfig{
		DB: l.database(),
		Server: &ServerConfig{
			Port:            l.optional("PORT", "8080"),
			AllowedOrigins:  l.optionalList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RequestTimeout:  l.optionalDuration("REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: l.optionalDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Log: &LogConfig{
			Level:  l.logLevel("LOG_LEVEL"),
			Format: strings.ToLower(l.optional("LOG_FORMAT", "text")),
		},
		Security: &SecurityConfig{
			PasswordHashCost: l.optionalInt("PASSWORD_HASH_COST", bcrypt.DefaultCost),
		},
		MigrationsDir: l.optional("MIGRATIONS_DIR", ""),
	}

	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		l.fail("LOG_FORMAT must be 'text' or 'json', got '%s'", cfg.Log.Format)
	}
	if cost := cfg.Security.PasswordHashCost; cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		l.fail("PASSWORD_HASH_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}

	if err := l.errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("configuration errors: %w", err)
	}
	return cfg, nil
}
