package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultWaqiBaseURL     = "https://api.waqi.info"
	defaultPort            = 8080
	defaultRequestTimeout  = 15 * time.Second
	defaultSyncConcurrency = 4
	defaultHistoryDays     = 30
)

// Config holds environment-driven settings for the service.
type Config struct {
	DatabaseURL     string
	WaqiToken       string
	WaqiBaseURL     string
	Port            int
	BearerToken     string
	RequestTimeout  time.Duration
	SyncConcurrency int
	HistoryDays     int
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		WaqiBaseURL:     defaultWaqiBaseURL,
		Port:            defaultPort,
		RequestTimeout:  defaultRequestTimeout,
		SyncConcurrency: defaultSyncConcurrency,
		HistoryDays:     defaultHistoryDays,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.WaqiToken = strings.TrimSpace(os.Getenv("WAQI_TOKEN"))
	if cfg.WaqiToken == "" {
		return cfg, errors.New("WAQI_TOKEN is required")
	}

	if base := strings.TrimSpace(os.Getenv("WAQI_BASE_URL")); base != "" {
		cfg.WaqiBaseURL = strings.TrimRight(base, "/")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	}

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("SYNC_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid SYNC_CONCURRENCY: %s", v)
		}
		cfg.SyncConcurrency = n
	}

	if v := strings.TrimSpace(os.Getenv("API_DEFAULT_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid API_DEFAULT_DAYS: %s", v)
		}
		cfg.HistoryDays = n
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
