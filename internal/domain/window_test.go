package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestTrailingWindow(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	w := TrailingWindow(90)

	assert.Equal(t, time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2026, 5, 26, 12, 30, 0, 0, time.UTC), w.Start)
	assert.Equal(t, "2026-05-26T12:30:00Z/2026-08-24T12:30:00Z", w.String())
}

func TestLocationIDs_DeDupesPreservingOrder(t *testing.T) {
	locations := []MonitoringLocation{
		{ID: "USGS-2"},
		{ID: "USGS-1"},
		{ID: "USGS-2"},
		{ID: ""},
	}
	assert.Equal(t, []string{"USGS-2", "USGS-1"}, LocationIDs(locations))
}
