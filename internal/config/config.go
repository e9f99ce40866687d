// Package config reads the application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	Addr         string
	DatabaseURL  string // empty selects the in-memory store
	LogLevel     string
	JWTSecret    string
	TokenTTL     time.Duration
	ReminderCron string
}

// Load reads configuration from environment variables and a .env file (if
// present). godotenv never overrides variables already set in the
// environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.Addr = os.Getenv("ADDR")
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	// No DATABASE_URL means the in-memory store: fine for development,
	// data does not survive a restart.
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	cfg.TokenTTL = 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = ttl
	}

	cfg.ReminderCron = os.Getenv("REMINDER_CRON")
	if cfg.ReminderCron == "" {
		cfg.ReminderCron = "*/5 * * * *" // every 5 minutes
	}

	return cfg, nil
}
