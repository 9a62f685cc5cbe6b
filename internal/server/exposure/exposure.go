// Package exposure holds the state-gated decisions over a user's infection,
// notification and contact records: whether contact disclosure is allowed
// right now, and which exposure status the user is in.
//
// The functions here are pure. Callers load the records and pass them in
// together with the current time.
package exposure

import (
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

// Lookback is how far back infections and contacts still count.
const Lookback = 15 * 24 * time.Hour

// within reports whether t lies in [now-Lookback, now].
func within(t, now time.Time) bool {
	return !t.Before(now.Add(-Lookback)) && !t.After(now)
}

// day returns midnight of t's own calendar date placed in loc. Dates read
// from DATE columns arrive as UTC midnight and must not shift when compared
// against a local now.
func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func latestInfection(user uuid.UUID, infections []models.InfectionEvent, now time.Time) (models.InfectionEvent, bool) {
	var (
		latest models.InfectionEvent
		found  bool
	)
	for _, ev := range infections {
		if ev.UserID != user || !within(ev.RecordedAt, now) {
			continue
		}
		if !found || ev.RecordedAt.After(latest.RecordedAt) {
			latest, found = ev, true
		}
	}
	return latest, found
}
