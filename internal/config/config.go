// Package config loads server configuration from the environment (and an
// optional .env file).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything cmd/server needs to start.
type Config struct {
	DSN           string
	Addr          string
	JWTSecret     string
	AccessTTL     time.Duration
	BcryptCost    int
	AdminEmail    string
	AdminPassword string
}

// Load reads .env (if present) and the environment. DSN and JWT_SECRET are
// required; everything else has defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DSN:           os.Getenv("DB_DSN"),
		Addr:          os.Getenv("LISTEN_ADDR"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AccessTTL:     24 * time.Hour,
		BcryptCost:    0, // bcrypt.DefaultCost when unset
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if v := os.Getenv("ACCESS_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse ACCESS_TTL: %w", err)
		}
		cfg.AccessTTL = ttl
	}
	return cfg, nil
}
