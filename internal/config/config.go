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

// Config holds all pipeline settings, populated from environment variables.
// A .env file in the working directory is loaded first if present.
type Config struct {
	// USGS API.
	BaseURL           string
	LocationsState    string
	LocationsSiteType string
	ParameterCodes    []string
	StatisticCode     string
	LookbackDays      int
	BatchSize         int
	APITimeout        time.Duration
	RateLimit         float64 // requests per second against the API
	RateBurst         int
	RefreshLookups    bool

	// Artifacts.
	OutputDir string

	// Charts.
	PlotParameter1 string
	PlotParameter2 string

	// Cleaning thresholds; ranges are configuration, not physics constants.
	MinDischarge   float64
	TemperatureMin float64
	TemperatureMax float64

	// Optional sinks and surfaces.
	ArchiveDBPath string // empty disables the SQLite archive
	HTTPAddr      string // empty disables the metrics server

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, applying defaults where
// unset. Invalid values are errors, not silent fallbacks.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	lookbackDays, err := envInt("DV_LOOKBACK_DAYS", 90)
	if err != nil {
		return nil, err
	}
	batchSize, err := envInt("DV_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	apiTimeout, err := envDuration("API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	rateLimit, err := envFloat("API_RATE_LIMIT", 2)
	if err != nil {
		return nil, err
	}
	rateBurst, err := envInt("API_RATE_BURST", 1)
	if err != nil {
		return nil, err
	}
	minDischarge, err := envFloat("CLEAN_MIN_DISCHARGE", 0)
	if err != nil {
		return nil, err
	}
	tempMin, err := envFloat("CLEAN_TEMP_MIN", -0.5)
	if err != nil {
		return nil, err
	}
	tempMax, err := envFloat("CLEAN_TEMP_MAX", 40)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:           envOrDefault("USGS_BASE_URL", "https://api.waterdata.usgs.gov/ogcapi/v0"),
		LocationsState:    envOrDefault("LOCATIONS_STATE", "New Mexico"),
		LocationsSiteType: envOrDefault("LOCATIONS_SITE_TYPE", "Stream"),
		ParameterCodes:    splitCSV(envOrDefault("DV_PARAMETER_CODES", "00060,00010")),
		StatisticCode:     envOrDefault("DV_STATISTIC_CODE", "00003"),
		LookbackDays:      lookbackDays,
		BatchSize:         batchSize,
		APITimeout:        apiTimeout,
		RateLimit:         rateLimit,
		RateBurst:         rateBurst,
		RefreshLookups:    envOrDefault("REFRESH_LOOKUPS", "false") == "true",

		OutputDir: envOrDefault("OUTPUT_DIR", "data"),

		PlotParameter1: envOrDefault("PLOT_PARAMETER_1", "Discharge"),
		PlotParameter2: envOrDefault("PLOT_PARAMETER_2", "Temperature, water"),

		MinDischarge:   minDischarge,
		TemperatureMin: tempMin,
		TemperatureMax: tempMax,

		ArchiveDBPath: os.Getenv("ARCHIVE_DB_PATH"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("USGS_BASE_URL is required")
	}
	if len(cfg.ParameterCodes) == 0 {
		return nil, errors.New("DV_PARAMETER_CODES must name at least one parameter")
	}
	if cfg.LookbackDays <= 0 {
		return nil, errors.New("DV_LOOKBACK_DAYS must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("DV_BATCH_SIZE must be positive")
	}
	if cfg.APITimeout <= 0 {
		return nil, errors.New("API_TIMEOUT must be positive")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return nil, errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}
	if cfg.TemperatureMin >= cfg.TemperatureMax {
		return nil, errors.New("CLEAN_TEMP_MIN must be below CLEAN_TEMP_MAX")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
