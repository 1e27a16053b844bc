// Command validate performs end-to-end integrity checks across one pipeline
// run's artifacts: the raw daily-values JSON, the joined observations CSV,
// and the cleaned observations CSV. It re-applies the cleaning rules and
// verifies row accounting between the three stages.
//
// Usage:
//
//	go run ./cmd/validate -output-dir data
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/water-data-pipeline/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	outputDir := flag.String("output-dir", "data", "pipeline output directory containing raw/ and CSV artifacts")
	minDischarge := flag.Float64("min-discharge", 0, "minimum accepted discharge value")
	tempMin := flag.Float64("temp-min", -0.5, "minimum accepted water temperature")
	tempMax := flag.Float64("temp-max", 40, "maximum accepted water temperature")
	flag.Parse()

	rules := domain.DefaultCleanRules()
	rules.MinDischarge = *minDischarge
	rules.TemperatureMin = *tempMin
	rules.TemperatureMax = *tempMax

	if code := run(*outputDir, rules); code != 0 {
		os.Exit(code)
	}
}

func run(outputDir string, rules domain.CleanRules) int {
	fmt.Println("=== Water Data Pipeline Integrity Validation ===")
	fmt.Println()

	rawValues, err := loadRawDailyValues(filepath.Join(outputDir, "raw", "daily_values.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw daily values: %v\n", err)
		return 1
	}

	joined, err := loadCSV(filepath.Join(outputDir, "joined_observations.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load joined CSV: %v\n", err)
		return 1
	}

	cleaned, err := loadCSV(filepath.Join(outputDir, "cleaned_observations.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cleaned CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCleaningRules(cleaned, rules),
		validateRowAccounting(joined, cleaned, rules),
		validateRawCoverage(rawValues, joined),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d raw daily values, %d joined, %d cleaned\n",
		len(rawValues), len(joined), len(cleaned))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func (r csvRow) key() string {
	return r.fields["monitoring_location_id"] + "|" + r.fields["parameter_code"] + "|" + r.fields["time"]
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header row in %s", path)
	}

	header := all[0]
	var rows []csvRow
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func loadRawDailyValues(path string) ([]domain.DailyValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return domain.ParseDailyValues(data)
}

// ── Phase 1: Cleaning Rules ──
// Every cleaned row must satisfy the rules the pipeline claims to enforce.

func validateCleaningRules(cleaned []csvRow, rules domain.CleanRules) *phase {
	p := &phase{name: "Phase 1: Cleaning Rules (cleaned CSV)"}

	seen := map[string]int{}
	for _, row := range cleaned {
		checkCleanedRow(p, row, rules)

		key := row.key()
		if prev, ok := seen[key]; ok {
			p.errorf("line %d: duplicate (site, parameter, date) key, first seen line %d", row.lineNum, prev)
		}
		seen[key] = row.lineNum
	}
	return p
}

func checkCleanedRow(p *phase, row csvRow, rules domain.CleanRules) {
	for _, field := range []string{
		"monitoring_location_id", "monitoring_location_name",
		"parameter_code", "parameter_name", "statistic_description", "time",
	} {
		if row.fields[field] == "" {
			p.errorf("line %d: %s is empty", row.lineNum, field)
		}
	}

	raw := row.fields["value"]
	if raw == "" {
		p.errorf("line %d: value is empty", row.lineNum)
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errorf("line %d: value %q is not numeric", row.lineNum, raw)
		return
	}

	switch row.fields["parameter_code"] {
	case rules.DischargeParameter:
		if value < rules.MinDischarge {
			p.errorf("line %d: discharge %g below minimum %g", row.lineNum, value, rules.MinDischarge)
		}
	case rules.TemperatureParameter:
		if value < rules.TemperatureMin || value > rules.TemperatureMax {
			p.errorf("line %d: temperature %g outside [%g, %g]", row.lineNum, value, rules.TemperatureMin, rules.TemperatureMax)
		}
	}
}

// ── Phase 2: Row Accounting ──
// The cleaned table must be exactly the joined table after re-applying the
// cleaning rules: same surviving keys, nothing invented.

func validateRowAccounting(joined, cleaned []csvRow, rules domain.CleanRules) *phase {
	p := &phase{name: "Phase 2: Row Accounting (joined vs cleaned)"}

	if len(cleaned) > len(joined) {
		p.errorf("cleaned has %d rows but joined only %d", len(cleaned), len(joined))
	}

	joinedIDs := map[string]bool{}
	for _, row := range joined {
		joinedIDs[row.fields["id"]] = true
	}
	for _, row := range cleaned {
		if !joinedIDs[row.fields["id"]] {
			p.errorf("line %d: cleaned row id %q not present in joined table", row.lineNum, row.fields["id"])
		}
	}

	expected := survivingKeys(joined, rules)
	actual := map[string]bool{}
	for _, row := range cleaned {
		actual[row.key()] = true
	}

	for key := range expected {
		if !actual[key] {
			p.errorf("key %s survives the rules but is missing from cleaned", key)
		}
	}
	for key := range actual {
		if !expected[key] {
			p.errorf("key %s is in cleaned but should have been dropped", key)
		}
	}
	return p
}

// survivingKeys re-applies the value, date, and threshold rules to the joined
// rows and returns the deduplicated key set that cleaning should keep.
func survivingKeys(joined []csvRow, rules domain.CleanRules) map[string]bool {
	keys := map[string]bool{}
	for _, row := range joined {
		if row.fields["time"] == "" {
			continue
		}
		value, err := strconv.ParseFloat(row.fields["value"], 64)
		if err != nil {
			continue
		}
		switch row.fields["parameter_code"] {
		case rules.DischargeParameter:
			if value < rules.MinDischarge {
				continue
			}
		case rules.TemperatureParameter:
			if value < rules.TemperatureMin || value > rules.TemperatureMax {
				continue
			}
		}
		keys[row.key()] = true
	}
	return keys
}

// ── Phase 3: Raw Coverage ──
// Every joined row must trace back to a feature in the raw document.

func validateRawCoverage(raw []domain.DailyValue, joined []csvRow) *phase {
	p := &phase{name: "Phase 3: Raw Coverage (raw vs joined)"}

	if len(joined) > len(raw) {
		p.errorf("joined has %d rows but raw document only %d features", len(joined), len(raw))
	}

	rawIDs := map[string]bool{}
	for _, dv := range raw {
		rawIDs[dv.ID] = true
	}
	for _, row := range joined {
		if !rawIDs[row.fields["id"]] {
			p.errorf("line %d: joined row id %q not found in raw daily values", row.lineNum, row.fields["id"])
		}
	}
	return p
}
