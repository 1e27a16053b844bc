// Package domain models USGS daily-value water data.
//
// # Data Source
//
// All collections come from the USGS water data OGC API
// (https://api.waterdata.usgs.gov/ogcapi/), which serves GeoJSON
// FeatureCollections. Four collections are consumed:
//
//	monitoring-locations  site metadata (id, name, agency, state, county, site type)
//	parameter-codes       what is measured: "00060" discharge (ft³/s), "00010" water temperature (°C)
//	statistic-codes       how raw readings were aggregated: "00003" mean, "00001" max, "00002" min
//	daily                 one value per (site, parameter, statistic, day)
//
// Feature properties carry the tabular columns; geometry carries site
// coordinates as [lon, lat]. Daily-value rows reference the three lookup
// collections by id.
//
// # Value conventions
//
// The daily collection encodes values inconsistently: numbers, quoted
// numbers, empty strings, or null. Parsing coerces all of these to float64
// and marks anything unparseable as NaN so cleaning can drop it with an
// accounted rule rather than a parse error. Dates are civil "2006-01-02"
// strings; last_modified is RFC 3339.
//
// # Cleaning policy
//
// Cleaning applies an ordered rule list (missing value, invalid date,
// discharge below minimum, temperature outside plausible range, duplicate
// key). Thresholds are configuration, not constants. Rows are dropped,
// never imputed, and drops are counted per rule. Duplicate
// (site, parameter, date) rows keep the latest-ingested row: latest
// last_modified wins, ties broken by later source position. Cleaning an
// already-clean set is a no-op.
package domain
