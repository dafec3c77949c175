// Package config loads process configuration from the environment and,
// in development, a .env file, via joho/godotenv.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	LogLevel       string
	ReaperInterval time.Duration
	DevOriginWide  bool // loosen websocket origin checks for local dev
}

// Load reads .env (if present — a missing file is not an error, matching
// godotenv's own semantics for optional dev overrides) and then the real
// environment, which always wins.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	cfg := Config{
		Addr:           getEnv("VETO_ADDR", ":8080"),
		LogLevel:       getEnv("VETO_LOG_LEVEL", "info"),
		ReaperInterval: getDuration("VETO_REAPER_INTERVAL", 30*time.Second),
		DevOriginWide:  getBool("VETO_DEV_ORIGIN_WIDE", false),
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
