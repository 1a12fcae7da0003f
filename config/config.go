package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Data directory
	DataDir string

	// Database (remote session store when serving, ledger when running as a client)
	DatabasePath string
	LedgerPath   string

	// Shared secret checked against the x-secret-key header
	SecretKey string

	// Remote title gateway
	RemoteBaseURL  string
	FetchTimeout   time.Duration
	PersistTimeout time.Duration
	MaxRetries     int

	// Debug settings
	LogLevel     string
	DBLogQueries bool
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	// A .env file is optional; real environment variables win
	_ = godotenv.Load(".env")

	dataDir := getEnv("MY_DATA_DIR", "./data")
	appDir := filepath.Join(dataDir, "app", "session-title")

	return &Config{
		// Server
		Port: getEnvInt("PORT", 12345),
		Host: getEnv("HOST", "0.0.0.0"),
		Env:  getEnv("ENV", "development"),

		// Data
		DataDir:      dataDir,
		DatabasePath: filepath.Join(appDir, "database.sqlite"),
		LedgerPath:   filepath.Join(appDir, "ledger.sqlite"),

		SecretKey: getEnv("SECRET_KEY", ""),

		// Gateway
		RemoteBaseURL:  getEnv("REMOTE_BASE_URL", "http://localhost:12345/api"),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		PersistTimeout: getEnvDuration("PERSIST_TIMEOUT", 15*time.Second),
		MaxRetries:     getEnvInt("GATEWAY_MAX_RETRIES", 3),

		// Debug
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBLogQueries: getEnv("DB_LOG_QUERIES", "") == "1",
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
