package usgs_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/water-data-pipeline/internal/adapter/usgs"
	"github.com/couchcryptid/water-data-pipeline/internal/config"
	"github.com/couchcryptid/water-data-pipeline/internal/domain"
	"github.com/couchcryptid/water-data-pipeline/internal/observability"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BaseURL:           baseURL,
		LocationsState:    "New Mexico",
		LocationsSiteType: "Stream",
		ParameterCodes:    []string{"00060", "00010"},
		StatisticCode:     "00003",
		BatchSize:         2,
		APITimeout:        5 * time.Second,
		RateLimit:         1000, // effectively unlimited for tests
		RateBurst:         1000,
	}
}

func newTestClient(baseURL string) *usgs.Client {
	return usgs.NewClient(testConfig(baseURL), slog.Default(), observability.NewMetricsForTesting())
}

func featurePage(ids []string, next string) string {
	features := ""
	for i, id := range ids {
		if i > 0 {
			features += ","
		}
		features += fmt.Sprintf(`{"id": %q, "properties": {"id": %q, "monitoring_location_name": "SITE %s"}}`, id, id, id)
	}
	links := `[{"rel": "self", "href": "ignored"}`
	if next != "" {
		links += fmt.Sprintf(`,{"rel": "next", "href": %q}`, next)
	}
	links += "]"
	return fmt.Sprintf(`{"type": "FeatureCollection", "title": "test", "features": [%s], "links": %s}`, features, links)
}

func TestMonitoringLocations_QueryParams(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, "/collections/monitoring-locations/items", r.URL.Path)
		fmt.Fprint(w, featurePage([]string{"USGS-1"}, ""))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	raw, err := client.MonitoringLocations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "New Mexico", gotQuery.Get("state_name"))
	assert.Equal(t, "Stream", gotQuery.Get("site_type"))
	assert.Equal(t, "json", gotQuery.Get("f"))

	locations, err := domain.ParseMonitoringLocations(raw)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "USGS-1", locations[0].ID)
}

func TestFetch_FollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "1" {
			fmt.Fprint(w, featurePage([]string{"USGS-2"}, ""))
			return
		}
		fmt.Fprint(w, featurePage([]string{"USGS-1"}, srv.URL+r.URL.Path+"?offset=1"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	raw, err := client.StatisticCodes(context.Background())
	require.NoError(t, err)

	fc, err := domain.DecodeFeatureCollection(raw)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, 2, fc.NumberReturned)
	// The combined artifact is one document; pagination links are not carried over.
	assert.Empty(t, fc.NextLink())
}

func TestDailyValues_BatchesSites(t *testing.T) {
	var batches []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/daily/items", r.URL.Path)
		q := r.URL.Query()
		batches = append(batches, q.Get("monitoring_location_id"))
		assert.Equal(t, "00060,00010", q.Get("parameter_code"))
		assert.Equal(t, "00003", q.Get("statistic_id"))
		assert.NotEmpty(t, q.Get("time"))
		fmt.Fprint(w, featurePage([]string{"dv-" + q.Get("monitoring_location_id")}, ""))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL) // batch size 2
	window := domain.Window{
		Start: time.Date(2026, 5, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	}

	raw, err := client.DailyValues(context.Background(), []string{"USGS-1", "USGS-2", "USGS-3"}, window)
	require.NoError(t, err)

	require.Equal(t, []string{"USGS-1,USGS-2", "USGS-3"}, batches)

	fc, err := domain.DecodeFeatureCollection(raw)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestDailyValues_NoSites(t *testing.T) {
	client := newTestClient("http://unused.test")
	_, err := client.DailyValues(context.Background(), nil, domain.TrailingWindow(90))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no site identifiers")
}

func TestFetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ParameterCodes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestFetch_UnparseablePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>not geojson</html>")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.MonitoringLocations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode page")
}
