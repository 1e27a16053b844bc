package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FeatureCollection is the subset of a GeoJSON document the pipeline reads.
// Properties stay raw so each collection can decode its own column set.
type FeatureCollection struct {
	Type           string    `json:"type"`
	Features       []Feature `json:"features"`
	NumberReturned int       `json:"numberReturned"`
	Links          []Link    `json:"links"`
}

// Feature is one GeoJSON feature with untyped properties.
type Feature struct {
	ID         string          `json:"id,omitempty"`
	Geometry   *Geometry       `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// Geometry holds a point geometry; only [lon, lat] points occur in these collections.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Link is an OGC API hypermedia link. rel "next" points at the next page.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// NextLink returns the href of the "next" pagination link, or "" when this
// is the last page.
func (fc *FeatureCollection) NextLink() string {
	for _, l := range fc.Links {
		if l.Rel == "next" && l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// DecodeFeatureCollection parses a raw GeoJSON document.
func DecodeFeatureCollection(data []byte) (FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return FeatureCollection{}, fmt.Errorf("decode feature collection: %w", err)
	}
	return fc, nil
}

type locationProperties struct {
	ID         string `json:"id"`
	Name       string `json:"monitoring_location_name"`
	AgencyName string `json:"agency_name"`
	SiteType   string `json:"site_type"`
	StateName  string `json:"state_name"`
	CountyName string `json:"county_name"`
}

// ParseMonitoringLocations converts a monitoring-locations document into rows.
// The site identifier comes from the feature properties, falling back to the
// feature-level id when the properties omit it.
func ParseMonitoringLocations(data []byte) ([]MonitoringLocation, error) {
	fc, err := DecodeFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse monitoring locations: %w", err)
	}

	locations := make([]MonitoringLocation, 0, len(fc.Features))
	for _, f := range fc.Features {
		var props locationProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return nil, fmt.Errorf("parse monitoring location properties: %w", err)
		}
		id := props.ID
		if id == "" {
			id = f.ID
		}
		loc := MonitoringLocation{
			ID:         id,
			Name:       props.Name,
			AgencyName: props.AgencyName,
			SiteType:   props.SiteType,
			State:      props.StateName,
			County:     props.CountyName,
		}
		if f.Geometry != nil && len(f.Geometry.Coordinates) == 2 {
			loc.Lon = f.Geometry.Coordinates[0]
			loc.Lat = f.Geometry.Coordinates[1]
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

type parameterProperties struct {
	ID            string `json:"id"`
	ParameterName string `json:"parameter_name"`
	UnitOfMeasure string `json:"unit_of_measure"`
}

// ParseParameterCodes converts a parameter-codes document into lookup rows.
func ParseParameterCodes(data []byte) ([]ParameterCode, error) {
	fc, err := DecodeFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse parameter codes: %w", err)
	}

	codes := make([]ParameterCode, 0, len(fc.Features))
	for _, f := range fc.Features {
		var props parameterProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return nil, fmt.Errorf("parse parameter code properties: %w", err)
		}
		code := props.ID
		if code == "" {
			code = f.ID
		}
		codes = append(codes, ParameterCode{
			Code: code,
			Name: props.ParameterName,
			Unit: props.UnitOfMeasure,
		})
	}
	return codes, nil
}

type statisticProperties struct {
	ID                   string `json:"id"`
	StatisticDescription string `json:"statistic_description"`
}

// ParseStatisticCodes converts a statistic-codes document into lookup rows.
func ParseStatisticCodes(data []byte) ([]StatisticCode, error) {
	fc, err := DecodeFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse statistic codes: %w", err)
	}

	codes := make([]StatisticCode, 0, len(fc.Features))
	for _, f := range fc.Features {
		var props statisticProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return nil, fmt.Errorf("parse statistic code properties: %w", err)
		}
		code := props.ID
		if code == "" {
			code = f.ID
		}
		codes = append(codes, StatisticCode{
			Code:        code,
			Description: props.StatisticDescription,
		})
	}
	return codes, nil
}

type dailyValueProperties struct {
	MonitoringLocationID string          `json:"monitoring_location_id"`
	ParameterCode        string          `json:"parameter_code"`
	StatisticID          string          `json:"statistic_id"`
	Time                 string          `json:"time"`
	Value                json.RawMessage `json:"value"`
	UnitOfMeasure        string          `json:"unit_of_measure"`
	ApprovalStatus       string          `json:"approval_status"`
	Qualifier            string          `json:"qualifier"`
	LastModified         string          `json:"last_modified"`
}

// ParseDailyValues converts a daily collection document into observation rows.
// Unparseable values become NaN and unparseable dates become the zero time;
// both are removed later by cleaning rules rather than treated as errors here.
func ParseDailyValues(data []byte) ([]DailyValue, error) {
	fc, err := DecodeFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse daily values: %w", err)
	}

	values := make([]DailyValue, 0, len(fc.Features))
	for _, f := range fc.Features {
		var props dailyValueProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return nil, fmt.Errorf("parse daily value properties: %w", err)
		}
		values = append(values, DailyValue{
			ID:             f.ID,
			SiteID:         props.MonitoringLocationID,
			ParameterCode:  props.ParameterCode,
			StatisticCode:  props.StatisticID,
			Date:           parseCivilDate(props.Time),
			Value:          parseNumericValue(props.Value),
			Unit:           props.UnitOfMeasure,
			ApprovalStatus: props.ApprovalStatus,
			Qualifier:      props.Qualifier,
			LastModified:   parseTimestamp(props.LastModified),
		})
	}
	return values, nil
}

// parseNumericValue coerces the daily "value" column to float64. The source
// encodes it as a number, a quoted number, an empty string, or null; anything
// that does not parse yields NaN.
func parseNumericValue(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return math.NaN()
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseCivilDate parses a "2006-01-02" date into midnight UTC, returning the
// zero time on failure.
func parseCivilDate(s string) time.Time {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimestamp parses an RFC 3339 timestamp, returning the zero time on failure.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
