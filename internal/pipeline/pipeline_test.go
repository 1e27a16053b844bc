package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/water-data-pipeline/internal/chart"
	"github.com/couchcryptid/water-data-pipeline/internal/config"
	"github.com/couchcryptid/water-data-pipeline/internal/domain"
	"github.com/couchcryptid/water-data-pipeline/internal/observability"
	"github.com/couchcryptid/water-data-pipeline/internal/pipeline"
)

const locationsDoc = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"id": "USGS-08279500",
			"geometry": {"type": "Point", "coordinates": [-105.9, 36.2]},
			"properties": {
				"monitoring_location_name": "RIO GRANDE AT EMBUDO, NM",
				"agency_name": "U.S. Geological Survey",
				"site_type": "Stream",
				"state_name": "New Mexico",
				"county_name": "Rio Arriba County"
			}
		}
	]
}`

const parametersDoc = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "id": "00060", "properties": {"parameter_name": "Discharge", "unit_of_measure": "ft^3/s"}},
		{"type": "Feature", "id": "00010", "properties": {"parameter_name": "Temperature, water", "unit_of_measure": "degC"}}
	]
}`

const statisticsDoc = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "id": "00003", "properties": {"statistic_description": "MEAN"}}
	]
}`

const dailyDoc = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"id": "dv-1",
			"properties": {
				"monitoring_location_id": "USGS-08279500",
				"parameter_code": "00060",
				"statistic_id": "00003",
				"time": "2026-08-18",
				"value": 153.0,
				"unit_of_measure": "ft^3/s",
				"last_modified": "2026-08-19T06:00:00Z"
			}
		},
		{
			"type": "Feature",
			"id": "dv-2",
			"properties": {
				"monitoring_location_id": "USGS-08279500",
				"parameter_code": "00010",
				"statistic_id": "00003",
				"time": "2026-08-18",
				"value": 21.5,
				"unit_of_measure": "degC",
				"last_modified": "2026-08-19T06:00:00Z"
			}
		},
		{
			"type": "Feature",
			"id": "dv-3",
			"properties": {
				"monitoring_location_id": "USGS-08279500",
				"parameter_code": "00060",
				"statistic_id": "00003",
				"time": "2026-08-19",
				"value": "",
				"unit_of_measure": "ft^3/s",
				"last_modified": "2026-08-20T06:00:00Z"
			}
		}
	]
}`

type fakeFetcher struct {
	lookupCalls int
	dailyCalls  [][]string
	dailyErr    error
	lookupErr   error
}

func (f *fakeFetcher) MonitoringLocations(_ context.Context) ([]byte, error) {
	f.lookupCalls++
	return []byte(locationsDoc), f.lookupErr
}

func (f *fakeFetcher) ParameterCodes(_ context.Context) ([]byte, error) {
	f.lookupCalls++
	return []byte(parametersDoc), f.lookupErr
}

func (f *fakeFetcher) StatisticCodes(_ context.Context) ([]byte, error) {
	f.lookupCalls++
	return []byte(statisticsDoc), f.lookupErr
}

func (f *fakeFetcher) DailyValues(_ context.Context, siteIDs []string, _ domain.Window) ([]byte, error) {
	f.dailyCalls = append(f.dailyCalls, siteIDs)
	if f.dailyErr != nil {
		return nil, f.dailyErr
	}
	return []byte(dailyDoc), nil
}

type fakeStore struct {
	raws map[string][]byte
	csvs map[string][][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{raws: map[string][]byte{}, csvs: map[string][][]string{}}
}

func (s *fakeStore) SaveRaw(name string, data []byte) (string, error) {
	s.raws[name] = data
	return name + ".json", nil
}

func (s *fakeStore) LoadRaw(name string) ([]byte, bool, error) {
	data, ok := s.raws[name]
	return data, ok, nil
}

func (s *fakeStore) SaveCSV(name string, _ []string, rows [][]string) (string, error) {
	s.csvs[name] = rows
	return name + ".csv", nil
}

func (s *fakeStore) ChartPath(name string) string { return "plots/" + name + ".html" }

type fakeCharts struct {
	dualPaths    []string
	scatterPaths []string
	err          error
}

func (c *fakeCharts) RenderDualAxis(_ []domain.Observation, path string) error {
	c.dualPaths = append(c.dualPaths, path)
	return c.err
}

func (c *fakeCharts) RenderScatter(_ []domain.Observation, path string) error {
	c.scatterPaths = append(c.scatterPaths, path)
	return c.err
}

type fakeArchiver struct {
	rows []domain.Observation
	err  error
}

func (a *fakeArchiver) ArchiveObservations(_ context.Context, rows []domain.Observation) error {
	a.rows = rows
	return a.err
}

func testConfig() *config.Config {
	return &config.Config{
		LocationsState:    "New Mexico",
		LocationsSiteType: "Stream",
		ParameterCodes:    []string{"00060", "00010"},
		StatisticCode:     "00003",
		LookbackDays:      90,
		RefreshLookups:    true,
		MinDischarge:      0,
		TemperatureMin:    -0.5,
		TemperatureMax:    40,
	}
}

func newPipeline(cfg *config.Config, fetcher *fakeFetcher, store *fakeStore, charts *fakeCharts, archiver pipeline.Archiver, out *bytes.Buffer) *pipeline.Pipeline {
	return pipeline.New(cfg, fetcher, store, charts, archiver,
		slog.Default(), observability.NewMetricsForTesting(), out)
}

func TestRun_HappyPath(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newFakeStore()
	charts := &fakeCharts{}
	archiver := &fakeArchiver{}
	var out bytes.Buffer

	p := newPipeline(testConfig(), fetcher, store, charts, archiver, &out)
	require.NoError(t, p.Run(context.Background()))

	// All four raw documents persisted.
	for _, name := range []string{
		pipeline.RawMonitoringLocations,
		pipeline.RawParameterCodes,
		pipeline.RawStatisticCodes,
		pipeline.RawDailyValues,
	} {
		assert.Contains(t, store.raws, name)
	}

	// CSV tables: lookups plus the joined and cleaned observation tables.
	assert.Len(t, store.csvs[pipeline.RawDailyValues], 3)
	assert.Len(t, store.csvs["joined_observations"], 3)
	// dv-3 has an empty value, dropped during cleaning.
	assert.Len(t, store.csvs["cleaned_observations"], 2)

	// Archive receives the cleaned rows.
	assert.Len(t, archiver.rows, 2)

	// Both charts rendered to the store's plot paths.
	assert.Equal(t, []string{"plots/discharge_temperature_timeseries.html"}, charts.dualPaths)
	assert.Equal(t, []string{"plots/temperature_vs_discharge.html"}, charts.scatterPaths)

	// Summary printed to the configured writer.
	assert.Contains(t, out.String(), "RIO GRANDE AT EMBUDO, NM")
	assert.Contains(t, out.String(), "Total Sites: 1")

	// Daily values requested for the parsed site.
	require.Len(t, fetcher.dailyCalls, 1)
	assert.Equal(t, []string{"USGS-08279500"}, fetcher.dailyCalls[0])
}

func TestRun_FetchErrorIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{dailyErr: errors.New("upstream 502")}
	var out bytes.Buffer

	p := newPipeline(testConfig(), fetcher, newFakeStore(), &fakeCharts{}, nil, &out)
	err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch daily values")
}

func TestRun_LookupErrorIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{lookupErr: errors.New("connection refused")}
	var out bytes.Buffer

	p := newPipeline(testConfig(), fetcher, newFakeStore(), &fakeCharts{}, nil, &out)
	require.Error(t, p.Run(context.Background()))
}

func TestRun_UsesCachedLookups(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshLookups = false

	store := newFakeStore()
	store.raws[pipeline.RawMonitoringLocations] = []byte(locationsDoc)
	store.raws[pipeline.RawParameterCodes] = []byte(parametersDoc)
	store.raws[pipeline.RawStatisticCodes] = []byte(statisticsDoc)

	fetcher := &fakeFetcher{}
	var out bytes.Buffer

	p := newPipeline(cfg, fetcher, store, &fakeCharts{}, nil, &out)
	require.NoError(t, p.Run(context.Background()))

	assert.Zero(t, fetcher.lookupCalls, "cached lookups should not hit the API")
	require.Len(t, fetcher.dailyCalls, 1, "daily values are never cached")
}

func TestRun_RefreshBypassesCache(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshLookups = true

	store := newFakeStore()
	store.raws[pipeline.RawMonitoringLocations] = []byte(locationsDoc)

	fetcher := &fakeFetcher{}
	var out bytes.Buffer

	p := newPipeline(cfg, fetcher, store, &fakeCharts{}, nil, &out)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 3, fetcher.lookupCalls)
}

func TestRun_ChartSkipIsNotFatal(t *testing.T) {
	charts := &fakeCharts{err: fmt.Errorf("render dual-axis chart: %w", chart.ErrNoPairedSite)}
	var out bytes.Buffer

	p := newPipeline(testConfig(), &fakeFetcher{}, newFakeStore(), charts, nil, &out)
	require.NoError(t, p.Run(context.Background()))
	assert.Contains(t, out.String(), "Total Observations: 2")
}

func TestRun_NoMatchingLocations(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newFakeStore()
	cfg := testConfig()
	cfg.RefreshLookups = false
	store.raws[pipeline.RawMonitoringLocations] = []byte(`{"type": "FeatureCollection", "features": []}`)
	store.raws[pipeline.RawParameterCodes] = []byte(parametersDoc)
	store.raws[pipeline.RawStatisticCodes] = []byte(statisticsDoc)
	var out bytes.Buffer

	p := newPipeline(cfg, fetcher, store, &fakeCharts{}, nil, &out)
	err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no monitoring locations")
}

func TestCheckReadiness(t *testing.T) {
	var out bytes.Buffer
	p := newPipeline(testConfig(), &fakeFetcher{}, newFakeStore(), &fakeCharts{}, nil, &out)

	assert.Error(t, p.CheckReadiness(context.Background()))

	require.NoError(t, p.Run(context.Background()))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}
