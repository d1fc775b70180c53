package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Revocation backends.
const (
	RevocationBackendPostgres = "postgres"
	RevocationBackendRedis    = "redis"
	RevocationBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Revocation RevocationConfig
	Seed       SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines token issuance and validation parameters.
type AuthConfig struct {
	JWTSecret               string
	Issuer                  string
	AccessTokenTTLSeconds   int
	ValidationTimeoutMillis int
	BcryptCost              int
	PublicRoutes            []string
}

// RevocationConfig selects and maintains the token blacklist.
type RevocationConfig struct {
	Backend         string
	CleanupSchedule string
}

// SeedConfig controls the default user inserted into an empty directory.
type SeedConfig struct {
	Enabled      bool
	UserName     string
	UserEmail    string
	UserPassword string
	UserPhone    string
}

var defaultPublicRoutes = []string{
	"/api/v1/auth/login",
	"/health/live",
	"/health/ready",
	"/metrics",
}

// Load reads configuration from environment variables, falling back to the
// YAML file named by CONFIG_FILE and then to built-in defaults. Missing token
// settings are reported as an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(src.get("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ttlRaw := src.get("AUTH_ACCESS_TOKEN_TTL_SECONDS", "")
	ttl := 0
	if ttlRaw != "" {
		ttl, err = strconv.Atoi(ttlRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTH_ACCESS_TOKEN_TTL_SECONDS: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  src.get("APP_NAME", "auth-service"),
			Env:                   src.get("APP_ENV", "development"),
			Host:                  src.get("APP_HOST", "0.0.0.0"),
			Port:                  src.get("APP_PORT", "8080"),
			Version:               src.get("APP_VERSION", "dev"),
			RequestTimeoutSeconds: src.getInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            src.get("POSTGRES_DSN", ""),
			MaxConns:       int32(src.getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(src.getInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  src.getBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  src.get("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(src.getInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(src.getInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      src.get("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  src.get("REDIS_PASSWORD", ""),
			DB:        redisDB,
			KeyPrefix: src.get("REDIS_KEY_PREFIX", "auth:revoked:"),
		},
		Logger: LoggerConfig{
			Level:  src.get("LOG_LEVEL", "info"),
			Format: src.get("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:               src.get("AUTH_JWT_SECRET", ""),
			Issuer:                  src.get("AUTH_ISSUER", ""),
			AccessTokenTTLSeconds:   ttl,
			ValidationTimeoutMillis: src.getInt("AUTH_VALIDATION_TIMEOUT_MS", 2000),
			BcryptCost:              src.getInt("AUTH_BCRYPT_COST", 12),
			PublicRoutes:            src.getList("AUTH_PUBLIC_ROUTES", defaultPublicRoutes),
		},
		Revocation: RevocationConfig{
			Backend:         strings.ToLower(src.get("REVOCATION_BACKEND", RevocationBackendPostgres)),
			CleanupSchedule: src.get("REVOCATION_CLEANUP_SCHEDULE", "@hourly"),
		},
		Seed: SeedConfig{
			Enabled:      src.getBool("SEED_ENABLED", false),
			UserName:     src.get("SEED_USER_NAME", "Default User"),
			UserEmail:    src.get("SEED_USER_EMAIL", "admin@example.com"),
			UserPassword: src.get("SEED_USER_PASSWORD", "password"),
			UserPhone:    src.get("SEED_USER_PHONE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER is required"))
	}
	if c.Auth.AccessTokenTTLSeconds <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_SECONDS must be a positive number of seconds"))
	}
	switch c.Revocation.Backend {
	case RevocationBackendPostgres, RevocationBackendRedis, RevocationBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown REVOCATION_BACKEND %q", c.Revocation.Backend))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the access token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLSeconds) * time.Second
}

// ValidationTimeout bounds the I/O stages of token validation.
func (a AuthConfig) ValidationTimeout() time.Duration {
	if a.ValidationTimeoutMillis <= 0 {
		return 0
	}
	return time.Duration(a.ValidationTimeoutMillis) * time.Millisecond
}

// source resolves keys from the environment first, then the config file.
type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	src := source{file: map[string]string{}}
	if path == "" {
		return src, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return src, fmt.Errorf("read config file: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return src, fmt.Errorf("parse config file %s: %w", path, err)
	}
	for key, val := range raw {
		switch v := val.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			src.file[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			src.file[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return src, nil
}

func (s source) get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val := s.file[key]; val != "" {
		return val
	}
	return fallback
}

func (s source) getInt(key string, fallback int) int {
	val := s.get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getBool(key string, fallback bool) bool {
	val := s.get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getList(key string, fallback []string) []string {
	val := s.get(key, "")
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
