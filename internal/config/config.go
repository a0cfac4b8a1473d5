package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthCookieSecure bool
	SessionSecret    string
	SeedDemoData     bool

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis        RedisConfig
	RateLimit    RateLimitConfig
	GrantCleanup GrantCleanupConfig
}

// RedisConfig configures the server-side session store. An empty Addr
// disables the store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RateLimitConfig throttles console sign-in attempts per client address.
// The limiter needs Redis and is skipped when Redis is not configured.
type RateLimitConfig struct {
	Enabled     bool
	SignInRate  float64
	SignInBurst int
}

// GrantCleanupConfig controls the background sweep of expired persisted
// grants.
type GrantCleanupConfig struct {
	Enabled         bool
	IntervalSeconds int
	BatchSize       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "idadmin"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure:  authCookieSecure,
		SessionSecret:     strings.TrimSpace(getenv("SESSION_SECRET", "")),
		SeedDemoData:      getenvBool("SEED_DEMO_DATA", environment != "production"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "idadmin"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "idadmin.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:  getenv("REDIS_PASSWORD", ""),
			DB:        getenvInt("REDIS_DB", 0),
			KeyPrefix: getenv("REDIS_KEY_PREFIX", "idadmin:"),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", true),
			SignInRate:  getenvFloat("RATE_LIMIT_SIGN_IN_RATE", 0.2),
			SignInBurst: getenvInt("RATE_LIMIT_SIGN_IN_BURST", 10),
		},
		GrantCleanup: GrantCleanupConfig{
			Enabled:         getenvBool("GRANT_CLEANUP_ENABLED", true),
			IntervalSeconds: getenvInt("GRANT_CLEANUP_INTERVAL_SECONDS", 3600),
			BatchSize:       getenvInt("GRANT_CLEANUP_BATCH_SIZE", 100),
		},
	}

	if cfg.SessionSecret == "" && environment != "production" {
		cfg.SessionSecret = "idadmin-development-session-secret"
	}

	return cfg
}

// IsProduction reports whether the console runs in a production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
