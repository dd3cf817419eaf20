package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr       string
	JWTSecret  []byte
	SQLitePath string
	TokenTTL   time.Duration
}

// LoadConfig reads configuration from the environment, with an optional .env
// file for local development.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:       strings.TrimSpace(os.Getenv("SERVER_ADDR")),
		SQLitePath: strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		TokenTTL:   24 * time.Hour,
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logrus.Warn("JWT_SECRET not set, using insecure default")
		secret = "TOP_SECRET_KEY"
	}
	cfg.JWTSecret = []byte(secret)

	if raw := strings.TrimSpace(os.Getenv("TOKEN_TTL")); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil && ttl > 0 {
			cfg.TokenTTL = ttl
		} else {
			logrus.Warnf("ignoring invalid TOKEN_TTL %q", raw)
		}
	}

	return cfg
}
