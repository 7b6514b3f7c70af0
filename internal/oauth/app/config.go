package app

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer         string // Issuer claim of session tokens (default: oauthd)
	DatabaseFile   string // Path to SQLite database file (default: ./oauthd.db)
	PepperFile     string // Path to file containing pepper for password hashing (default: ./pepper)
	SessionKeyFile string // Ed25519 PEM key for session tokens; empty means ephemeral

	AccessTokenTTL           time.Duration // Default access token lifetime (default: 12h)
	RefreshTokenTTL          time.Duration // Default refresh token lifetime (default: 30d)
	CodeLength               int           // Authorization code length (default: 6)
	TokenDedup               bool          // Reuse live tokens per (client, user, scopes) (default: false)
	ClientCredentialsRefresh bool          // Issue refresh tokens for client_credentials (default: false)
	GrantMaxRetries          int           // Retries after a storage conflict (default: 3)

	SessionTTL    time.Duration // Pending authorization request lifetime (default: 10m)
	SessionStore  string        // memory or redis (default: memory)
	RedisAddr     string        // Redis address for the redis session store (default: localhost:6379)
	RedisPassword string
	RedisDB       int
	SecureCookie  bool // Set Secure on the session cookie (default: true outside dev)

	AdminAPIKey string // Enables /admin routes when set
	ClientsFile string // Optional YAML file of clients imported on startup

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadEnvFile merges a dotenv file into the process environment without
// overriding variables that are already set. A missing default .env is fine.
func LoadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	cfg := Config{
		Issuer:         getEnvOrDefault("OAUTH_ISSUER", "oauthd"),
		DatabaseFile:   getEnvOrDefault("OAUTH_DATABASE_FILE", "oauthd.db"),
		PepperFile:     getEnvOrDefault("OAUTH_PEPPER_FILE", "pepper"),
		SessionKeyFile: os.Getenv("OAUTH_SESSION_KEY_FILE"),

		AccessTokenTTL:           getEnvDurationOrDefault("OAUTH_ACCESS_TOKEN_TTL", 12*time.Hour),
		RefreshTokenTTL:          getEnvDurationOrDefault("OAUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		CodeLength:               getEnvIntOrDefault("OAUTH_CODE_LENGTH", 6),
		TokenDedup:               getEnvBoolOrDefault("OAUTH_TOKEN_DEDUP", false),
		ClientCredentialsRefresh: getEnvBoolOrDefault("OAUTH_CLIENT_CREDENTIALS_REFRESH", false),
		GrantMaxRetries:          getEnvIntOrDefault("OAUTH_GRANT_MAX_RETRIES", 3),

		SessionTTL:    getEnvDurationOrDefault("OAUTH_SESSION_TTL", 10*time.Minute),
		SessionStore:  strings.ToLower(getEnvOrDefault("OAUTH_SESSION_STORE", "memory")),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		SecureCookie:  getEnvBoolOrDefault("OAUTH_SECURE_COOKIE", env != "dev" && env != "test"),

		AdminAPIKey: os.Getenv("OAUTH_ADMIN_API_KEY"),
		ClientsFile: os.Getenv("OAUTH_CLIENTS_FILE"),

		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
