package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// MinSecretLength is the shortest JWT signing secret accepted at startup.
const MinSecretLength = 32

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrMissingSecret is returned when JWT_SECRET is unset.
var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Config holds application level configuration loaded from environment
// variables and overridden by command-line flags.
type Config struct {
	ServerPort string

	DBDriver string
	DSN      string
	ResetDB  bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret string
	TokenTTL  time.Duration

	WikipediaEndpoint string
	WikipediaTimeout  time.Duration
	ArticleLinkBase   string

	HashConcurrency int
	CORSOrigins     []string

	LogLevel  string
	LogFormat string

	SwaggerHost string
}

// Load builds Config from the environment, applies flags from args on top
// and validates the result.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBDriver:          getEnv("DB_DRIVER", DriverMySQL),
		DSN:               getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/wikishelf?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		WikipediaEndpoint: getEnv("WIKIPEDIA_ENDPOINT", "https://{lang}.wikipedia.org/w/api.php"),
		ArticleLinkBase:   getEnv("ARTICLE_LINK_BASE", "/articles/view/"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:4000")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
	}

	var err error
	if cfg.ResetDB, err = getEnvBool("RESET_DB", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.HashConcurrency, err = getEnvInt("HASH_CONCURRENCY", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.WikipediaTimeout, err = getEnvDuration("WIKIPEDIA_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("wikishelf", pflag.ContinueOnError)
	fs.StringVar(&cfg.ServerPort, "port", cfg.ServerPort, "HTTP listen port")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: mysql, postgres or sqlite")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "database DSN")
	fs.BoolVar(&cfg.ResetDB, "reset-db", cfg.ResetDB, "drop all tables before migrating")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address, empty disables the profile cache")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "HS256 signing secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "bearer token lifetime")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.HashConcurrency < 1 {
		return errors.New("HASH_CONCURRENCY must be at least 1")
	}
	if !strings.Contains(c.WikipediaEndpoint, "://") {
		return fmt.Errorf("WIKIPEDIA_ENDPOINT %q is not a URL", c.WikipediaEndpoint)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
