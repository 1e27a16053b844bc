package domain

import (
	"fmt"
	"time"
)

// Window is a half-open UTC time interval used to scope daily-value fetches.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the window covering the last days days, ending now.
func TrailingWindow(days int) Window {
	end := clock.Now().UTC()
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// String renders the window in the interval form the USGS API expects for
// its time query parameter: "start/end" with both bounds in RFC3339 UTC.
func (w Window) String() string {
	const layout = "2006-01-02T15:04:05Z"
	return fmt.Sprintf("%s/%s", w.Start.UTC().Format(layout), w.End.UTC().Format(layout))
}
