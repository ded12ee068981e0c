package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines service configuration. Environment variables apply
// first; an optional YAML file named by BIKECLOUD_CONFIG overrides
// the fields it sets.
type Config struct {
	HTTPAddr string
	// DatabaseURL selects the Postgres store. Empty runs on the
	// in-memory store (development only — state dies with the process).
	DatabaseURL string
	APIKey      string
	// MaxSeriesLength caps the retained sample log. Zero keeps it
	// unbounded, trusting the bike to end sessions before the log
	// grows unreasonably.
	MaxSeriesLength int
	EndSettleDelay  time.Duration
	DevMode         bool
}

type fileConfig struct {
	HTTPAddr        *string `yaml:"http_addr"`
	DatabaseURL     *string `yaml:"database_url"`
	APIKey          *string `yaml:"api_key"`
	MaxSeriesLength *int    `yaml:"max_series_length"`
	EndSettleDelay  *string `yaml:"end_settle_delay"`
	DevMode         *bool   `yaml:"dev_mode"`
}

// Load builds configuration from env and the optional YAML file.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		APIKey:          os.Getenv("APIKEY"),
		MaxSeriesLength: getenvIntDefault("MAX_SERIES_LENGTH", 0),
		EndSettleDelay:  getenvDuration("END_SETTLE_DELAY", 100*time.Millisecond),
		DevMode:         getenvDefault("MODE", "") == "dev",
	}

	path := os.Getenv("BIKECLOUD_CONFIG")
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, err
	}

	if file.HTTPAddr != nil {
		cfg.HTTPAddr = *file.HTTPAddr
	}
	if file.DatabaseURL != nil {
		cfg.DatabaseURL = *file.DatabaseURL
	}
	if file.APIKey != nil {
		cfg.APIKey = *file.APIKey
	}
	if file.MaxSeriesLength != nil {
		cfg.MaxSeriesLength = *file.MaxSeriesLength
	}
	if file.EndSettleDelay != nil {
		parsed, err := time.ParseDuration(*file.EndSettleDelay)
		if err != nil {
			return cfg, fmt.Errorf("config: end_settle_delay: %w", err)
		}
		cfg.EndSettleDelay = parsed
	}
	if file.DevMode != nil {
		cfg.DevMode = *file.DevMode
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
