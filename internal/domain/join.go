package domain

// JoinObservations performs three sequential inner joins on exact key
// equality: daily values against monitoring locations, then parameter codes,
// then statistic codes. Rows whose key is missing from any lookup table are
// excluded: observations without a known site, parameter, and statistic
// description are unusable downstream, so orphans are a data-quality drop,
// not an error.
func JoinObservations(
	values []DailyValue,
	locations []MonitoringLocation,
	parameters []ParameterCode,
	statistics []StatisticCode,
) []Observation {
	locByID := make(map[string]MonitoringLocation, len(locations))
	for _, loc := range locations {
		locByID[loc.ID] = loc
	}
	paramByCode := make(map[string]ParameterCode, len(parameters))
	for _, p := range parameters {
		paramByCode[p.Code] = p
	}
	statByCode := make(map[string]StatisticCode, len(statistics))
	for _, s := range statistics {
		statByCode[s.Code] = s
	}

	joined := make([]Observation, 0, len(values))
	for _, dv := range values {
		loc, ok := locByID[dv.SiteID]
		if !ok {
			continue
		}
		param, ok := paramByCode[dv.ParameterCode]
		if !ok {
			continue
		}
		stat, ok := statByCode[dv.StatisticCode]
		if !ok {
			continue
		}

		obs := Observation{
			DailyValue:           dv,
			SiteName:             loc.Name,
			SiteType:             loc.SiteType,
			AgencyName:           loc.AgencyName,
			State:                loc.State,
			County:               loc.County,
			ParameterName:        param.Name,
			StatisticDescription: stat.Description,
		}
		// The daily collection omits the unit on some rows; the parameter
		// lookup carries the authoritative unit.
		if obs.Unit == "" {
			obs.Unit = param.Unit
		}
		joined = append(joined, obs)
	}
	return joined
}
