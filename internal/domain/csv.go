package domain

import (
	"math"
	"strconv"
	"time"
)

// CSV headers for the tabular artifacts the pipeline persists.
var (
	LocationCSVHeader = []string{
		"id", "monitoring_location_name", "agency_name", "site_type",
		"state_name", "county_name", "latitude", "longitude",
	}
	DailyValueCSVHeader = []string{
		"id", "monitoring_location_id", "parameter_code", "statistic_id",
		"time", "value", "unit_of_measure", "approval_status", "qualifier", "last_modified",
	}
	ObservationCSVHeader = []string{
		"id", "monitoring_location_id", "monitoring_location_name", "site_type",
		"time", "last_modified", "parameter_code", "parameter_name",
		"value", "unit_of_measure", "statistic_id", "statistic_description",
		"approval_status", "agency_name", "state_name", "county_name",
	}
)

// CSVRecord renders the location as one row under LocationCSVHeader.
func (m MonitoringLocation) CSVRecord() []string {
	return []string{
		m.ID, m.Name, m.AgencyName, m.SiteType, m.State, m.County,
		formatFloat(m.Lat), formatFloat(m.Lon),
	}
}

// CSVRecord renders the daily value as one row under DailyValueCSVHeader.
func (d DailyValue) CSVRecord() []string {
	return []string{
		d.ID, d.SiteID, d.ParameterCode, d.StatisticCode,
		formatDate(d.Date), formatFloat(d.Value), d.Unit,
		d.ApprovalStatus, d.Qualifier, formatTimestamp(d.LastModified),
	}
}

// CSVRecord renders the observation as one row under ObservationCSVHeader.
func (o Observation) CSVRecord() []string {
	return []string{
		o.ID, o.SiteID, o.SiteName, o.SiteType,
		formatDate(o.Date), formatTimestamp(o.LastModified),
		o.ParameterCode, o.ParameterName,
		formatFloat(o.Value), o.Unit,
		o.StatisticCode, o.StatisticDescription,
		o.ApprovalStatus, o.AgencyName, o.State, o.County,
	}
}

// LocationCSVRecords renders all locations as CSV rows.
func LocationCSVRecords(locations []MonitoringLocation) [][]string {
	rows := make([][]string, len(locations))
	for i, loc := range locations {
		rows[i] = loc.CSVRecord()
	}
	return rows
}

// DailyValueCSVRecords renders all daily values as CSV rows.
func DailyValueCSVRecords(values []DailyValue) [][]string {
	rows := make([][]string, len(values))
	for i, dv := range values {
		rows[i] = dv.CSVRecord()
	}
	return rows
}

// ObservationCSVRecords renders all observations as CSV rows.
func ObservationCSVRecords(observations []Observation) [][]string {
	rows := make([][]string, len(observations))
	for i, obs := range observations {
		rows[i] = obs.CSVRecord()
	}
	return rows
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
