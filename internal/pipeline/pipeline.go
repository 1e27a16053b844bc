// Package pipeline orchestrates one batch run: fetch lookups and daily
// values from the USGS water-data API, join, clean, summarize, archive, and
// render charts. Each stage is behind a small interface so tests can swap in
// fakes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/water-data-pipeline/internal/chart"
	"github.com/couchcryptid/water-data-pipeline/internal/config"
	"github.com/couchcryptid/water-data-pipeline/internal/domain"
	"github.com/couchcryptid/water-data-pipeline/internal/observability"
)

// Raw artifact names, shared with the validate command.
const (
	RawMonitoringLocations = "monitoring_locations"
	RawParameterCodes      = "parameter_codes"
	RawStatisticCodes      = "statistic_codes"
	RawDailyValues         = "daily_values"
)

// Fetcher retrieves raw GeoJSON documents from the USGS API.
type Fetcher interface {
	MonitoringLocations(ctx context.Context) ([]byte, error)
	ParameterCodes(ctx context.Context) ([]byte, error)
	StatisticCodes(ctx context.Context) ([]byte, error)
	DailyValues(ctx context.Context, siteIDs []string, window domain.Window) ([]byte, error)
}

// ArtifactStore persists raw documents and CSV tables for the run.
type ArtifactStore interface {
	SaveRaw(name string, data []byte) (string, error)
	LoadRaw(name string) ([]byte, bool, error)
	SaveCSV(name string, header []string, rows [][]string) (string, error)
	ChartPath(name string) string
}

// Archiver persists cleaned observations to a durable store. Optional.
type Archiver interface {
	ArchiveObservations(ctx context.Context, rows []domain.Observation) error
}

// ChartRenderer writes the run's chart documents. Optional in tests.
type ChartRenderer interface {
	RenderDualAxis(rows []domain.Observation, path string) error
	RenderScatter(rows []domain.Observation, path string) error
}

// Pipeline wires the stages together for a single run.
type Pipeline struct {
	cfg        *config.Config
	fetcher    Fetcher
	store      ArtifactStore
	charts     ChartRenderer
	archiver   Archiver // nil when the archive is disabled
	logger     *slog.Logger
	metrics    *observability.Metrics
	summaryOut io.Writer

	ready atomic.Bool
}

// New creates a Pipeline. archiver may be nil; summaryOut receives the
// end-of-run summary table (stdout in production).
func New(
	cfg *config.Config,
	fetcher Fetcher,
	store ArtifactStore,
	charts ChartRenderer,
	archiver Archiver,
	logger *slog.Logger,
	metrics *observability.Metrics,
	summaryOut io.Writer,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		charts:     charts,
		archiver:   archiver,
		logger:     logger,
		metrics:    metrics,
		summaryOut: summaryOut,
	}
}

// CheckReadiness reports whether the run has loaded its lookup tables.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("lookup tables not loaded yet")
	}
	return nil
}

// Run executes the batch pipeline. Fetch and persistence errors are fatal;
// data-quality exclusions are logged and counted, never errors.
func (p *Pipeline) Run(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := time.Now()
	p.logger.Info("pipeline run starting",
		"state", p.cfg.LocationsState,
		"site_type", p.cfg.LocationsSiteType,
		"parameters", p.cfg.ParameterCodes,
		"lookback_days", p.cfg.LookbackDays,
	)

	locations, parameters, statistics, err := p.loadLookups(ctx)
	if err != nil {
		return err
	}
	p.ready.Store(true)

	values, err := p.fetchDailyValues(ctx, locations)
	if err != nil {
		return err
	}

	observations, err := p.transform(values, locations, parameters, statistics)
	if err != nil {
		return err
	}

	if p.archiver != nil {
		if err := p.archiver.ArchiveObservations(ctx, observations); err != nil {
			return fmt.Errorf("archive stage: %w", err)
		}
	}

	p.report(observations)

	p.logger.Info("pipeline run complete",
		"observations", len(observations),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

// loadLookups fetches (or restores from cache) the three lookup tables.
func (p *Pipeline) loadLookups(ctx context.Context) ([]domain.MonitoringLocation, []domain.ParameterCode, []domain.StatisticCode, error) {
	defer p.observeStage("lookups")()

	locDoc, err := p.loadOrFetch(ctx, RawMonitoringLocations, p.fetcher.MonitoringLocations)
	if err != nil {
		return nil, nil, nil, err
	}
	paramDoc, err := p.loadOrFetch(ctx, RawParameterCodes, p.fetcher.ParameterCodes)
	if err != nil {
		return nil, nil, nil, err
	}
	statDoc, err := p.loadOrFetch(ctx, RawStatisticCodes, p.fetcher.StatisticCodes)
	if err != nil {
		return nil, nil, nil, err
	}

	locations, err := domain.ParseMonitoringLocations(locDoc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse monitoring locations: %w", err)
	}
	parameters, err := domain.ParseParameterCodes(paramDoc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse parameter codes: %w", err)
	}
	statistics, err := domain.ParseStatisticCodes(statDoc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse statistic codes: %w", err)
	}

	p.metrics.RowsFetched.WithLabelValues(RawMonitoringLocations).Add(float64(len(locations)))
	p.metrics.RowsFetched.WithLabelValues(RawParameterCodes).Add(float64(len(parameters)))
	p.metrics.RowsFetched.WithLabelValues(RawStatisticCodes).Add(float64(len(statistics)))
	p.logger.Info("lookup tables loaded",
		"locations", len(locations),
		"parameters", len(parameters),
		"statistics", len(statistics),
	)

	if _, err := p.store.SaveCSV(RawMonitoringLocations, domain.LocationCSVHeader, domain.LocationCSVRecords(locations)); err != nil {
		return nil, nil, nil, err
	}
	return locations, parameters, statistics, nil
}

// loadOrFetch returns a cached raw lookup document when refresh is disabled
// and a previous run left one behind; otherwise it fetches and persists.
func (p *Pipeline) loadOrFetch(ctx context.Context, name string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if !p.cfg.RefreshLookups {
		data, ok, err := p.store.LoadRaw(name)
		if err != nil {
			return nil, err
		}
		if ok {
			p.logger.Info("using cached lookup", "collection", name)
			return data, nil
		}
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if _, err := p.store.SaveRaw(name, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Pipeline) fetchDailyValues(ctx context.Context, locations []domain.MonitoringLocation) ([]domain.DailyValue, error) {
	defer p.observeStage("daily_values")()

	siteIDs := domain.LocationIDs(locations)
	if len(siteIDs) == 0 {
		return nil, errors.New("no monitoring locations matched the configured filters")
	}

	window := domain.TrailingWindow(p.cfg.LookbackDays)
	raw, err := p.fetcher.DailyValues(ctx, siteIDs, window)
	if err != nil {
		return nil, fmt.Errorf("fetch daily values: %w", err)
	}
	if _, err := p.store.SaveRaw(RawDailyValues, raw); err != nil {
		return nil, err
	}

	values, err := domain.ParseDailyValues(raw)
	if err != nil {
		return nil, fmt.Errorf("parse daily values: %w", err)
	}
	p.metrics.RowsFetched.WithLabelValues(RawDailyValues).Add(float64(len(values)))

	if _, err := p.store.SaveCSV(RawDailyValues, domain.DailyValueCSVHeader, domain.DailyValueCSVRecords(values)); err != nil {
		return nil, err
	}
	return values, nil
}

// transform joins the daily values against the lookups, cleans the result,
// and persists both tables.
func (p *Pipeline) transform(
	values []domain.DailyValue,
	locations []domain.MonitoringLocation,
	parameters []domain.ParameterCode,
	statistics []domain.StatisticCode,
) ([]domain.Observation, error) {
	defer p.observeStage("transform")()

	joined := domain.JoinObservations(values, locations, parameters, statistics)
	p.metrics.RowsJoined.Add(float64(len(joined)))
	p.logger.Info("observations joined", "input", len(values), "joined", len(joined), "excluded", len(values)-len(joined))

	if _, err := p.store.SaveCSV("joined_observations", domain.ObservationCSVHeader, domain.ObservationCSVRecords(joined)); err != nil {
		return nil, err
	}

	rules := domain.DefaultCleanRules()
	rules.MinDischarge = p.cfg.MinDischarge
	rules.TemperatureMin = p.cfg.TemperatureMin
	rules.TemperatureMax = p.cfg.TemperatureMax
	cleaned, drops := domain.Clean(joined, rules)
	for rule, n := range drops {
		p.metrics.RowsDropped.WithLabelValues(rule).Add(float64(n))
		p.logger.Info("rows dropped", "rule", rule, "count", n)
	}
	p.logger.Info("observations cleaned", "input", len(joined), "kept", len(cleaned))

	if _, err := p.store.SaveCSV("cleaned_observations", domain.ObservationCSVHeader, domain.ObservationCSVRecords(cleaned)); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// report prints the summary table and renders the charts. Chart rendering is
// best-effort: a dataset with no site carrying both parameters is a log line,
// not a failure.
func (p *Pipeline) report(observations []domain.Observation) {
	defer p.observeStage("report")()

	summaries := domain.Summarize(observations)
	domain.RenderSummary(p.summaryOut, summaries)

	if p.charts == nil {
		return
	}
	if err := p.charts.RenderDualAxis(observations, p.store.ChartPath("discharge_temperature_timeseries")); err != nil {
		p.logChartSkip("dual-axis", err)
	}
	if err := p.charts.RenderScatter(observations, p.store.ChartPath("temperature_vs_discharge")); err != nil {
		p.logChartSkip("scatter", err)
	}
}

func (p *Pipeline) logChartSkip(name string, err error) {
	if errors.Is(err, chart.ErrNoPairedSite) {
		p.logger.Info("chart skipped", "chart", name, "reason", err.Error())
		return
	}
	p.logger.Error("chart render failed", "chart", name, "error", err)
}

func (p *Pipeline) observeStage(stage string) func() {
	start := time.Now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
