// Package config loads environment-driven server configuration, grounded
// on the teacher's config/config.go godotenv idiom but returning errors
// instead of calling log.Fatal so the caller can choose the CLI's exit
// code (spec.md §6: 2 for invalid configuration, not 1).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the fully-validated server configuration.
type Config struct {
	Port          int
	DatabasePath  string
	JWTSecret     string
	CORSOrigins   []string
	HistoryRetain int
	ShutdownWaitS int
}

// Load reads .env (if present, ignored if absent) then the process
// environment, applying defaults and validating required fields.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port:          8080,
		DatabasePath:  "tourney.db",
		HistoryRetain: 50,
		ShutdownWaitS: 15,
	}

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}

	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, p)
			}
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	if v := os.Getenv("HISTORY_RETAIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HISTORY_RETAIN %q: %w", v, err)
		}
		cfg.HistoryRetain = n
	}

	return cfg, nil
}
