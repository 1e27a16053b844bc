package domain

import "math"

// Drop rule names, used as log fields and metric labels.
const (
	RuleMissingValue      = "missing_value"
	RuleInvalidDate       = "invalid_date"
	RuleDischargeBelowMin = "discharge_below_min"
	RuleTemperatureRange  = "temperature_out_of_range"
	RuleDuplicateKey      = "duplicate_key"
)

// CleanRules holds the row-removal thresholds. The plausible physical ranges
// come from configuration, not hard-coded constants.
type CleanRules struct {
	DischargeParameter   string  // parameter code for discharge, "00060"
	TemperatureParameter string  // parameter code for water temperature, "00010"
	MinDischarge         float64 // rows below this are dropped
	TemperatureMin       float64 // °C
	TemperatureMax       float64 // °C
}

// DefaultCleanRules returns the documented default thresholds: discharge must
// be non-negative and water temperature within [-0.5, 40] °C.
func DefaultCleanRules() CleanRules {
	return CleanRules{
		DischargeParameter:   "00060",
		TemperatureParameter: "00010",
		MinDischarge:         0,
		TemperatureMin:       -0.5,
		TemperatureMax:       40,
	}
}

// DropCounts records how many rows each cleaning rule removed.
type DropCounts map[string]int

// Clean applies the ordered row-removal rules and returns the surviving rows
// with per-rule drop counts. Rules, in order:
//
//  1. drop rows whose value is NaN (missing or unparseable in the source)
//  2. drop rows with an unparseable date
//  3. drop discharge rows below the configured minimum
//  4. drop temperature rows outside the configured plausible range
//  5. deduplicate (site, parameter, date), keeping the latest-ingested row
//
// Dropped rows are a documented data-quality policy, not errors. Clean is
// idempotent: applying it to its own output removes nothing.
func Clean(rows []Observation, rules CleanRules) ([]Observation, DropCounts) {
	drops := make(DropCounts)

	type key struct {
		site, parameter string
		date            int64
	}
	indexByKey := make(map[key]int, len(rows))
	cleaned := make([]Observation, 0, len(rows))

	for _, obs := range rows {
		switch {
		case math.IsNaN(obs.Value):
			drops[RuleMissingValue]++
			continue
		case obs.Date.IsZero():
			drops[RuleInvalidDate]++
			continue
		case obs.ParameterCode == rules.DischargeParameter && obs.Value < rules.MinDischarge:
			drops[RuleDischargeBelowMin]++
			continue
		case obs.ParameterCode == rules.TemperatureParameter &&
			(obs.Value < rules.TemperatureMin || obs.Value > rules.TemperatureMax):
			drops[RuleTemperatureRange]++
			continue
		}

		k := key{site: obs.SiteID, parameter: obs.ParameterCode, date: obs.Date.Unix()}
		if i, ok := indexByKey[k]; ok {
			drops[RuleDuplicateKey]++
			// Latest-ingested wins: newer last_modified replaces the kept
			// row; on equal timestamps the later source position wins.
			if !cleaned[i].LastModified.After(obs.LastModified) {
				cleaned[i] = obs
			}
			continue
		}
		indexByKey[k] = len(cleaned)
		cleaned = append(cleaned, obs)
	}

	return cleaned, drops
}
