// Package config loads runtime settings from the environment, optionally seeded from a .env file.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	LogLevel         string
	APIBaseURL       string
	APIPrefix        string
	LoginPath        string
	ServerRunAddress string
	SessionStore     string
	SessionDSN       string
	PageSize         int
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = getEnv("LOG_LEVEL", "info")
	APIBaseURL = getEnv("API_BASE_URL", "http://localhost:3000")
	APIPrefix = getEnv("API_PREFIX", "/api")
	LoginPath = getEnv("API_LOGIN_PATH", "/auth/login")
	ServerRunAddress = getEnv("SERVER_RUN_ADDRESS", "0.0.0.0:8080")
	SessionStore = getEnv("SESSION_STORE", "file")
	SessionDSN = getEnv("SESSION_DSN", DefaultSessionDSN(SessionStore))
	PageSize = getEnvAsInt("PAGE_SIZE", 10)
}

// getEnv returns the value of key, or defaultValue when the variable is unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("invalid value for %s; using default %d", key, defaultValue)
		return defaultValue
	}
	return n
}

// DefaultSessionDSN is the location of the durable session of store when SESSION_DSN is not set.
// Network-backed stores have no sensible default and get an empty DSN.
func DefaultSessionDSN(store string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch store {
	case "file":
		return filepath.Join(home, ".inventory-admin", "session.json")
	case "sqlite":
		return filepath.Join(home, ".inventory-admin", "session.db")
	default:
		return ""
	}
}
