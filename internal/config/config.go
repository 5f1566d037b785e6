// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultStoreURL is the hosted record store used when none is configured.
const DefaultStoreURL = "https://tuespacio-db.pockethost.io"

// Config holds process configuration.
type Config struct {
	StoreURL  string
	Timeout   time.Duration
	DBPath    string
	DevMode   bool
	RedisAddr string
	CacheTTL  time.Duration
	Port      int
}

// Load reads .env files (missing files are fine) and then the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
		slog.Debug("no .env file found, using environment only")
	}

	cfg := &Config{
		StoreURL:  strings.TrimRight(getEnv("TUESPACIO_STORE_URL", ""), "/"),
		DBPath:    getEnv("TUESPACIO_DB", ""),
		RedisAddr: getEnv("TUESPACIO_REDIS_ADDR", ""),
	}

	var err error
	if cfg.Timeout, err = getEnvDuration("TUESPACIO_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("TUESPACIO_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DevMode, err = getEnvBool("TUESPACIO_DEV_MODE", false); err != nil {
		return nil, err
	}
	if cfg.Port, err = getEnvInt("TUESPACIO_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("TUESPACIO_PORT: %d is not a valid port", cfg.Port)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, val)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, val)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, val)
	}
	return d, nil
}
