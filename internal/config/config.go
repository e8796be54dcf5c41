package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/simaogato/billsplit-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/billsplit-backend/internal/logging"
	"github.com/simaogato/billsplit-backend/internal/usecase/guard"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

const devJWTSecret = "dev-only-change-me"

type Config struct {
	// Servers
	GRPCAddr string
	HTTPAddr string

	// Storage
	StorageBackend string
	DBConnStr      string
	SQLiteDBPath   string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Ledger
	ShareOverflowPolicy string
	SettleConcurrency   int

	// AMQP, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string

	// Logging
	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string
	SeedDemo           bool
}

// Load reads .env when present, then the process environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8081"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendMemory),
		DBConnStr:      postgresConnStr(),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/billsplit.db"),

		JWTSecret: getEnv("JWT_SECRET", devJWTSecret),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 168*time.Hour),

		ShareOverflowPolicy: getEnv("SHARE_OVERFLOW_POLICY", string(guard.OverflowReject)),
		SettleConcurrency:   getEnvInt("SETTLE_CONCURRENCY", 4),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billsplit"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", string(logging.FormatJSON)),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		SeedDemo:           getEnvBool("SEED_DEMO", false),
	}
}

// postgresConnStr prefers DB_CONN_STR and otherwise builds one from the individual DB_* vars
func postgresConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "billsplit"),
	)
}

// Dialect maps the storage backend onto a SQL dialect
// The second result is false for the memory backend
func (c *Config) Dialect() (sqlstore.Dialect, string, bool) {
	switch c.StorageBackend {
	case BackendPostgres:
		return sqlstore.DialectPostgres, c.DBConnStr, true
	case BackendSQLite:
		return sqlstore.DialectSQLite, c.SQLiteDBPath, true
	default:
		return "", "", false
	}
}

// UsesDevSecret reports whether the JWT secret is still the development default
func (c *Config) UsesDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var problems []string

	if c.GRPCAddr == "" {
		problems = append(problems, "gRPC address cannot be empty")
	}
	if c.HTTPAddr == "" {
		problems = append(problems, "HTTP address cannot be empty")
	}
	if c.GRPCAddr != "" && c.GRPCAddr == c.HTTPAddr {
		problems = append(problems, fmt.Sprintf("gRPC and HTTP servers cannot share address '%s'", c.GRPCAddr))
	}

	validBackends := []string{BackendMemory, BackendPostgres, BackendSQLite}
	if !contains(validBackends, c.StorageBackend) {
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.StorageBackend, validBackends))
	}
	if c.StorageBackend == BackendSQLite && c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.StorageBackend == BackendPostgres && c.DBConnStr == "" {
		problems = append(problems, "database connection string cannot be empty when using postgres backend")
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT secret cannot be empty")
	}
	if c.TokenTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	if _, err := guard.ParseOverflowPolicy(c.ShareOverflowPolicy); err != nil {
		problems = append(problems, err.Error())
	}
	if c.SettleConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid settle concurrency %d: must be at least 1", c.SettleConcurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	validFormats := []string{string(logging.FormatJSON), string(logging.FormatConsole)}
	if !contains(validFormats, c.LogFormat) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
