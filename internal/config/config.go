package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	CORSOrigins []string

	RateLimit       int
	RateLimitWindow time.Duration

	MetricsEnabled bool
	MetricsToken   string
}

// Load reads a .env file when present, then the process environment.
// DATABASE_URL is the only required setting; without it the service runs on
// the in-memory store, which is only useful for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:            getEnv("PORT", "5000"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "")),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", false),
		MetricsToken:    getEnv("METRICS_TOKEN", ""),
		RateLimit:       0,
		RateLimitWindow: time.Minute,
	}

	limit := getEnv("RATE_LIMIT", "0")
	n, err := strconv.Atoi(limit)
	if err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	cfg.RateLimit = n

	if cfg.MetricsEnabled && cfg.MetricsToken == "" {
		return Config{}, fmt.Errorf("METRICS_TOKEN required when METRICS_ENABLED is set")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
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

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
