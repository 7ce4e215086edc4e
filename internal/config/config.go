// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full configuration surface of the auth service.
type Config struct {
	Addr        string
	PostgresDSN string
	RedisAddr   string

	AccessSecret    string
	RefreshSecret   string
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration

	RateBurst  int
	RatePerSec int
}

const envPrefix = "KINOTEKA_"

// Load builds a Config from environment variables. Secrets have no
// defaults: the service refuses to start without them.
func Load() (Config, error) {
	cfg := Config{
		Addr:            getenv("ADDR", ":8080"),
		PostgresDSN:     getenv("PG_DSN", ""),
		RedisAddr:       getenv("REDIS_ADDR", "127.0.0.1:6379"),
		AccessSecret:    getenv("ACCESS_TOKEN_SECRET", ""),
		RefreshSecret:   getenv("REFRESH_TOKEN_SECRET", ""),
		AccessLifetime:  time.Duration(getint("ACCESS_TOKEN_LIFETIME_HOURS", 1)) * time.Hour,
		RefreshLifetime: time.Duration(getint("REFRESH_TOKEN_LIFETIME_HOURS", 24*7)) * time.Hour,
		RateBurst:       getint("RATE_BURST", 20),
		RatePerSec:      getint("RATE_PER_SEC", 10),
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("%sACCESS_TOKEN_SECRET and %sREFRESH_TOKEN_SECRET are required", envPrefix, envPrefix)
	}
	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("%sPG_DSN is required", envPrefix)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return def
	}
	return v
}

func getint(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
