package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port            string
	DatabasePath    string
	JWTSecret       string
	LogLevel        string
	ModeratorKey    string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	// APIBaseURL is where cmd/threadview reaches a running server.
	APIBaseURL string
	// PreviewAllowPrivate lets bookmark previews fetch loopback and private hosts.
	PreviewAllowPrivate bool
}

// Load returns the application configuration. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "linkvault.db"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ModeratorKey:    getEnv("MODERATOR_KEY", "moderator123"),
		AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", nil),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),

		PreviewAllowPrivate: getEnvAsBool("PREVIEW_ALLOW_PRIVATE", false),
	}
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// bare integers are seconds
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
