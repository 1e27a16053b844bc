package domain

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// Summarize aggregates cleaned observations per (site, parameter): row count,
// minimum, maximum, arithmetic mean, and the most recent (date, value) pair.
// Ties on the most recent date are broken by arrival order in the source set,
// the later row winning. Results are sorted by site name, then parameter name.
func Summarize(rows []Observation) []Summary {
	type key struct{ site, parameter string }

	order := make([]key, 0)
	groups := make(map[key]*Summary)
	sums := make(map[key]float64)

	for _, obs := range rows {
		k := key{site: obs.SiteID, parameter: obs.ParameterCode}
		s, ok := groups[k]
		if !ok {
			s = &Summary{
				SiteID:        obs.SiteID,
				SiteName:      obs.SiteName,
				ParameterCode: obs.ParameterCode,
				ParameterName: obs.ParameterName,
				Unit:          obs.Unit,
				Min:           obs.Value,
				Max:           obs.Value,
			}
			groups[k] = s
			order = append(order, k)
		}

		s.Count++
		sums[k] += obs.Value
		if obs.Value < s.Min {
			s.Min = obs.Value
		}
		if obs.Value > s.Max {
			s.Max = obs.Value
		}
		if !obs.Date.Before(s.MostRecentDate) {
			s.MostRecentDate = obs.Date
			s.MostRecent = obs.Value
		}
	}

	summaries := make([]Summary, 0, len(groups))
	for _, k := range order {
		s := *groups[k]
		s.Mean = sums[k] / float64(s.Count)
		summaries = append(summaries, s)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].SiteName != summaries[j].SiteName {
			return summaries[i].SiteName < summaries[j].SiteName
		}
		return summaries[i].ParameterName < summaries[j].ParameterName
	})
	return summaries
}

// RenderSummary writes the per (site, parameter) summary table and a totals
// line to w. Output is for human eyes; no machine-readable format is promised.
func RenderSummary(w io.Writer, summaries []Summary) {
	const rule = 130

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", rule))
	fmt.Fprintf(w, "%*s\n", (rule+len("SUMMARY BY SITE AND PARAMETER"))/2, "SUMMARY BY SITE AND PARAMETER")
	fmt.Fprintln(w, strings.Repeat("=", rule))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Site\tParameter\tUnit\tObs\tMin\tMax\tAvg\tRecent\tRecent Date")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			s.SiteName, s.ParameterName, s.Unit,
			s.Count, s.Min, s.Max, s.Mean,
			s.MostRecent, s.MostRecentDate.Format("2006-01-02"),
		)
	}
	tw.Flush()

	sites := make(map[string]struct{})
	parameters := make(map[string]struct{})
	total := 0
	for _, s := range summaries {
		sites[s.SiteID] = struct{}{}
		parameters[s.ParameterCode] = struct{}{}
		total += s.Count
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", rule))
	fmt.Fprintf(w, "Total Sites: %d | Total Parameters: %d | Total Observations: %d\n",
		len(sites), len(parameters), total)
	fmt.Fprintln(w, strings.Repeat("=", rule))
}
