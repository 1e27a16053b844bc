package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.waterdata.usgs.gov/ogcapi/v0", cfg.BaseURL)
	assert.Equal(t, "New Mexico", cfg.LocationsState)
	assert.Equal(t, "Stream", cfg.LocationsSiteType)
	assert.Equal(t, []string{"00060", "00010"}, cfg.ParameterCodes)
	assert.Equal(t, "00003", cfg.StatisticCode)
	assert.Equal(t, 90, cfg.LookbackDays)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 2.0, cfg.RateLimit)
	assert.Equal(t, 1, cfg.RateBurst)
	assert.False(t, cfg.RefreshLookups)
	assert.Equal(t, "data", cfg.OutputDir)
	assert.Equal(t, "Discharge", cfg.PlotParameter1)
	assert.Equal(t, "Temperature, water", cfg.PlotParameter2)
	assert.Equal(t, 0.0, cfg.MinDischarge)
	assert.Equal(t, -0.5, cfg.TemperatureMin)
	assert.Equal(t, 40.0, cfg.TemperatureMax)
	assert.Empty(t, cfg.ArchiveDBPath)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("USGS_BASE_URL", "https://example.test/ogcapi")
	t.Setenv("LOCATIONS_STATE", "Colorado")
	t.Setenv("DV_PARAMETER_CODES", "00060, 00065 ,00010")
	t.Setenv("DV_STATISTIC_CODE", "00001")
	t.Setenv("DV_LOOKBACK_DAYS", "30")
	t.Setenv("DV_BATCH_SIZE", "25")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("API_RATE_LIMIT", "0.5")
	t.Setenv("API_RATE_BURST", "2")
	t.Setenv("REFRESH_LOOKUPS", "true")
	t.Setenv("OUTPUT_DIR", "/tmp/water")
	t.Setenv("CLEAN_TEMP_MIN", "-10")
	t.Setenv("CLEAN_TEMP_MAX", "50")
	t.Setenv("ARCHIVE_DB_PATH", "/tmp/water/archive.db")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/ogcapi", cfg.BaseURL)
	assert.Equal(t, "Colorado", cfg.LocationsState)
	assert.Equal(t, []string{"00060", "00065", "00010"}, cfg.ParameterCodes)
	assert.Equal(t, "00001", cfg.StatisticCode)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, 0.5, cfg.RateLimit)
	assert.Equal(t, 2, cfg.RateBurst)
	assert.True(t, cfg.RefreshLookups)
	assert.Equal(t, "/tmp/water", cfg.OutputDir)
	assert.Equal(t, -10.0, cfg.TemperatureMin)
	assert.Equal(t, 50.0, cfg.TemperatureMax)
	assert.Equal(t, "/tmp/water/archive.db", cfg.ArchiveDBPath)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non-numeric lookback", "DV_LOOKBACK_DAYS", "ninety", "DV_LOOKBACK_DAYS"},
		{"zero lookback", "DV_LOOKBACK_DAYS", "0", "must be positive"},
		{"negative batch size", "DV_BATCH_SIZE", "-1", "must be positive"},
		{"bad timeout", "API_TIMEOUT", "soon", "API_TIMEOUT"},
		{"zero rate limit", "API_RATE_LIMIT", "0", "must be positive"},
		{"empty parameter list", "DV_PARAMETER_CODES", " , ", "at least one parameter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvertedTemperatureRange(t *testing.T) {
	t.Setenv("CLEAN_TEMP_MIN", "50")
	t.Setenv("CLEAN_TEMP_MAX", "40")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLEAN_TEMP_MIN")
}
