package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API and the session watcher.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Watch    WatchConfig
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
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret            string
	AdminTokenTTLMinutes int
	BcryptCost           int
	SessionCookieName    string
	SessionTTLMinutes    int
	SecureCookies        bool
	SeedAdminEmail       string
	SeedAdminPassword    string
}

// SessionConfig tunes the client side session validity coordinator.
type SessionConfig struct {
	APIBase               string
	FreshnessSeconds      int
	PollIntervalSeconds   int
	WaitTimeoutMillis     int
	RequestTimeoutSeconds int
}

// WatchConfig holds the credentials the session watcher logs in with.
type WatchConfig struct {
	Email            string
	Password         string
	Admin            bool
	KeepAliveSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "exim-session"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "9000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "exim:session"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AdminTokenTTLMinutes: getEnvAsInt("AUTH_ADMIN_TOKEN_TTL_MINUTES", 60),
			BcryptCost:           getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SessionCookieName:    getEnv("SESSION_COOKIE_NAME", "exim_session"),
			SessionTTLMinutes:    getEnvAsInt("SESSION_TTL_MINUTES", 480),
			SecureCookies:        getEnvAsBool("SESSION_SECURE_COOKIES", false),
			SeedAdminEmail:       os.Getenv("SEED_ADMIN_EMAIL"),
			SeedAdminPassword:    os.Getenv("SEED_ADMIN_PASSWORD"),
		},
		Session: SessionConfig{
			APIBase:               getEnv("SESSION_API_BASE", "http://127.0.0.1:9000/api"),
			FreshnessSeconds:      getEnvAsInt("SESSION_FRESHNESS_SECONDS", 30),
			PollIntervalSeconds:   getEnvAsInt("SESSION_POLL_INTERVAL_SECONDS", 30),
			WaitTimeoutMillis:     getEnvAsInt("SESSION_WAIT_TIMEOUT_MS", 5000),
			RequestTimeoutSeconds: getEnvAsInt("SESSION_REQUEST_TIMEOUT_SECONDS", 10),
		},
		Watch: WatchConfig{
			Email:            os.Getenv("WATCH_EMAIL"),
			Password:         os.Getenv("WATCH_PASSWORD"),
			Admin:            getEnvAsBool("WATCH_ADMIN", false),
			KeepAliveSeconds: getEnvAsInt("WATCH_KEEPALIVE_SECONDS", 60),
		},
	}

	return cfg, nil
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

// SessionTTL returns how long a cookie session lives in Redis.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// FreshnessWindow is the maximum age of a cached verdict.
func (s SessionConfig) FreshnessWindow() time.Duration {
	return secondsOr(s.FreshnessSeconds, 30)
}

// PollInterval is the period of the global poller.
func (s SessionConfig) PollInterval() time.Duration {
	return secondsOr(s.PollIntervalSeconds, 30)
}

// RequestTimeout bounds the remote session check.
func (s SessionConfig) RequestTimeout() time.Duration {
	return secondsOr(s.RequestTimeoutSeconds, 10)
}

// WaitTimeout bounds how long a caller waits on an in-flight validation.
func (s SessionConfig) WaitTimeout() time.Duration {
	if s.WaitTimeoutMillis <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.WaitTimeoutMillis) * time.Millisecond
}

// KeepAlive is the period of the watcher's authenticated heartbeat; zero
// disables it.
func (w WatchConfig) KeepAlive() time.Duration {
	if w.KeepAliveSeconds <= 0 {
		return 0
	}
	return time.Duration(w.KeepAliveSeconds) * time.Second
}

func secondsOr(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
