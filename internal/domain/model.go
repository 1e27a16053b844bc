package domain

import "time"

// MonitoringLocation describes a USGS water monitoring site, one row of the
// monitoring-locations reference collection.
type MonitoringLocation struct {
	ID         string
	Name       string
	AgencyName string
	SiteType   string
	State      string
	County     string
	Lat        float64
	Lon        float64
}

// ParameterCode identifies the physical quantity a daily value measures,
// e.g. "00060" is discharge in ft³/s and "00010" is water temperature in °C.
type ParameterCode struct {
	Code string
	Name string
	Unit string
}

// StatisticCode identifies the aggregation applied to raw sensor readings,
// e.g. "00003" is the daily mean.
type StatisticCode struct {
	Code        string
	Description string
}

// DailyValue is one aggregated observation for a (site, parameter, statistic, day).
// Value is NaN when the source record carried no parseable numeric value;
// such rows are removed during cleaning, never imputed.
type DailyValue struct {
	ID             string
	SiteID         string
	ParameterCode  string
	StatisticCode  string
	Date           time.Time // midnight UTC; zero when unparseable
	Value          float64
	Unit           string
	ApprovalStatus string
	Qualifier      string
	LastModified   time.Time
}

// Observation is a DailyValue joined against all three lookup tables, one
// denormalized row per (site, parameter, date). Rows only exist for daily
// values whose foreign keys resolved in every lookup table.
type Observation struct {
	DailyValue

	SiteName             string
	SiteType             string
	AgencyName           string
	State                string
	County               string
	ParameterName        string
	StatisticDescription string
}

// Summary aggregates cleaned observations for one (site, parameter) pair.
type Summary struct {
	SiteID         string
	SiteName       string
	ParameterCode  string
	ParameterName  string
	Unit           string
	Count          int
	Min            float64
	Max            float64
	Mean           float64
	MostRecent     float64
	MostRecentDate time.Time
}

// LocationIDs returns the site identifiers of locations, de-duplicated with
// the original order preserved.
func LocationIDs(locations []MonitoringLocation) []string {
	seen := make(map[string]struct{}, len(locations))
	ids := make([]string, 0, len(locations))
	for _, loc := range locations {
		if loc.ID == "" {
			continue
		}
		if _, ok := seen[loc.ID]; ok {
			continue
		}
		seen[loc.ID] = struct{}{}
		ids = append(ids, loc.ID)
	}
	return ids
}
