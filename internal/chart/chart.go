// Package chart renders the run's interactive visualizations as standalone
// HTML documents using go-echarts.
package chart

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/couchcryptid/water-data-pipeline/internal/domain"
)

// ErrNoPairedSite is returned when no monitoring site carries observations
// for both configured chart parameters. Callers treat it as "nothing to
// plot", not a failure.
var ErrNoPairedSite = errors.New("no site has observations for both chart parameters")

// Renderer builds the two chart documents from cleaned observations. The two
// parameters are matched by parameter name (e.g. "Discharge" and
// "Temperature, water").
type Renderer struct {
	parameter1 string
	parameter2 string
	logger     *slog.Logger
}

// NewRenderer creates a Renderer for the two configured parameter names.
func NewRenderer(parameter1, parameter2 string, logger *slog.Logger) *Renderer {
	return &Renderer{parameter1: parameter1, parameter2: parameter2, logger: logger}
}

// RenderDualAxis writes a time-indexed line chart with the first parameter on
// the primary Y axis and the second on a secondary axis, for the first site
// (by name order) that has both parameters.
func (r *Renderer) RenderDualAxis(rows []domain.Observation, path string) error {
	site, series1, series2, err := r.pairedSite(rows)
	if err != nil {
		return err
	}

	dates := unionDates(series1, series2)
	byDate1 := valuesByDate(series1)
	byDate2 := valuesByDate(series2)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("%s and %s over time", r.parameter1, r.parameter2),
			Width:     "1400px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s and %s Over Time", r.parameter1, r.parameter2),
			Subtitle: site,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: axisLabel(r.parameter1, series1)}),
	)
	line.ExtendYAxis(opts.YAxis{Name: axisLabel(r.parameter2, series2), Type: "value"})

	data1 := make([]opts.LineData, len(dates))
	data2 := make([]opts.LineData, len(dates))
	for i, d := range dates {
		data1[i] = lineDatum(byDate1, d)
		data2[i] = lineDatum(byDate2, d)
	}

	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.Format("2006-01-02")
	}

	line.SetXAxis(labels).
		AddSeries(r.parameter1, data1).
		AddSeries(r.parameter2, data2, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	if err := r.write(line.Render, path); err != nil {
		return fmt.Errorf("render dual-axis chart: %w", err)
	}
	r.logger.Info("dual-axis chart rendered", "site", site, "path", path, "points", len(dates))
	return nil
}

// RenderScatter writes a correlation scatter of the first parameter against
// the second, pairs matched on date, for the same site the dual-axis chart
// uses. The chart only suggests correlation visually; no statistic is computed.
func (r *Renderer) RenderScatter(rows []domain.Observation, path string) error {
	site, series1, series2, err := r.pairedSite(rows)
	if err != nil {
		return err
	}

	byDate1 := valuesByDate(series1)
	data := make([]opts.ScatterData, 0, len(series2))
	for _, obs := range series2 {
		v1, ok := byDate1[obs.Date]
		if !ok {
			continue
		}
		data = append(data, opts.ScatterData{
			Name:  obs.Date.Format("2006-01-02"),
			Value: []any{obs.Value, v1},
		})
	}
	if len(data) == 0 {
		r.logger.Info("no overlapping dates for scatter chart", "site", site)
		return ErrNoPairedSite
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("%s vs %s", r.parameter2, r.parameter1),
			Width:     "1000px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Relationship Between %s and %s", r.parameter2, r.parameter1),
			Subtitle: site,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: axisLabel(r.parameter2, series2)}),
		charts.WithYAxisOpts(opts.YAxis{Name: axisLabel(r.parameter1, series1)}),
	)
	scatter.SetXAxis(nil).AddSeries(site, data)

	if err := r.write(scatter.Render, path); err != nil {
		return fmt.Errorf("render scatter chart: %w", err)
	}
	r.logger.Info("scatter chart rendered", "site", site, "path", path, "points", len(data))
	return nil
}

// pairedSite finds the first site (by name order) with observations for both
// parameters and returns its two date-sorted series.
func (r *Renderer) pairedSite(rows []domain.Observation) (string, []domain.Observation, []domain.Observation, error) {
	type pair struct{ p1, p2 []domain.Observation }
	bySite := make(map[string]*pair)

	for _, obs := range rows {
		p, ok := bySite[obs.SiteName]
		if !ok {
			p = &pair{}
			bySite[obs.SiteName] = p
		}
		switch obs.ParameterName {
		case r.parameter1:
			p.p1 = append(p.p1, obs)
		case r.parameter2:
			p.p2 = append(p.p2, obs)
		}
	}

	names := make([]string, 0, len(bySite))
	for name, p := range bySite {
		if len(p.p1) > 0 && len(p.p2) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil, nil, ErrNoPairedSite
	}
	sort.Strings(names)

	site := names[0]
	p := bySite[site]
	sortByDate(p.p1)
	sortByDate(p.p2)
	return site, p.p1, p.p2, nil
}

func (r *Renderer) write(render func(w io.Writer) error, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sortByDate(rows []domain.Observation) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
}

func unionDates(a, b []domain.Observation) []time.Time {
	seen := make(map[time.Time]struct{}, len(a)+len(b))
	for _, obs := range a {
		seen[obs.Date] = struct{}{}
	}
	for _, obs := range b {
		seen[obs.Date] = struct{}{}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func valuesByDate(rows []domain.Observation) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(rows))
	for _, obs := range rows {
		out[obs.Date] = obs.Value
	}
	return out
}

// lineDatum renders a point, or a gap when the parameter has no value that day.
func lineDatum(byDate map[time.Time]float64, d time.Time) opts.LineData {
	if v, ok := byDate[d]; ok {
		return opts.LineData{Value: v}
	}
	return opts.LineData{Value: nil}
}

func axisLabel(parameter string, rows []domain.Observation) string {
	if len(rows) > 0 && rows[0].Unit != "" {
		return fmt.Sprintf("%s (%s)", parameter, rows[0].Unit)
	}
	return parameter
}
