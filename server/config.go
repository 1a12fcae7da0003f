package server

import (
	"github.com/xiaoyuanzhu-com/session-title/config"
	"github.com/xiaoyuanzhu-com/session-title/db"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure (immutable, requires restart)
	Port int
	Host string
	Env  string // "development" or "production"

	DatabasePath string

	// Shared secret required in the x-secret-key header. Empty disables the check.
	SecretKey string

	// Debug settings
	DBLogQueries bool
}

// FromAppConfig builds a server config from the application config
func FromAppConfig(c *config.Config) *Config {
	return &Config{
		Port:         c.Port,
		Host:         c.Host,
		Env:          c.Env,
		DatabasePath: c.DatabasePath,
		SecretKey:    c.SecretKey,
		DBLogQueries: c.DBLogQueries,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToDBConfig converts server config to database config
func (c *Config) ToDBConfig() db.Config {
	return db.Config{
		Path:            c.DatabasePath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0, // Never expire
		LogQueries:      c.DBLogQueries,
	}
}
