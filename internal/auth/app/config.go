package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer         string // Required: issuer claim for tokens
	BootstrapToken string // Optional: token required to perform bootstrap

	NumKeys      int    // Optional: number of Ed25519 signing keys (default: 3, min: 1, max: 10)
	DatabaseFile string // Optional: path to SQLite database file (default: ./lumiauth.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	// Session lifetime rules. A session dies when either bound is hit.
	MaxInactivity time.Duration // Optional: idle window between refreshes (default: 30m)
	SessionTTL    time.Duration // Optional: absolute session lifetime (default: 12h)

	// WebAuthn relying party configuration. RPOrigins is comma separated.
	RPDisplayName string
	RPID          string
	RPOrigins     []string

	ResetTokenTTL time.Duration // Optional: password reset token lifetime (default: 1h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("AUTH_ISSUER", "lumiauth"),
		BootstrapToken:       os.Getenv("BOOTSTRAP_TOKEN"),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "lumiauth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		MaxInactivity:        getEnvDurationOrDefault("AUTH_MAX_INACTIVITY", 30*time.Minute),
		SessionTTL:           getEnvDurationOrDefault("AUTH_SESSION_TTL", 12*time.Hour),
		RPDisplayName:        getEnvOrDefault("AUTH_RP_DISPLAY_NAME", "LumiLearn"),
		RPID:                 getEnvOrDefault("AUTH_RP_ID", "localhost"),
		ResetTokenTTL:        getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", time.Hour),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Parse number of signing keys (default: 3)
	if numKeysStr := os.Getenv("AUTH_NUM_KEYS"); numKeysStr != "" {
		if numKeys, err := strconv.Atoi(numKeysStr); err == nil {
			cfg.NumKeys = numKeys
		}
		// If parsing fails, NumKeys remains 0 (will use default in KeyManager)
	}

	// WebAuthn origins: the exact web origins the browser ceremony may
	// come from.
	origins := getEnvOrDefault("AUTH_RP_ORIGINS", "http://localhost:8080")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.RPOrigins = append(cfg.RPOrigins, o)
		}
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
