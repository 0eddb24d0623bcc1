package bins

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// StatusClosedCompleted is the upstream state reported once a round has
// finished at a property for the day.
const StatusClosedCompleted = "Closed Completed"

// View is the derived per-type state. It is recomputed from the occurrence
// data plus the current date at read time and never stored.
type View struct {
	Type            Type
	NextCollection  time.Time
	DaysUntil       int
	Status          string
	IsCollectionDay bool
}

// DateOnly truncates a timestamp to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysUntil returns the whole calendar-day difference between today and the
// target date. Rounding absorbs the odd-length days at DST transitions.
func DaysUntil(today, target time.Time) int {
	diff := DateOnly(target).Sub(DateOnly(today.In(target.Location())))
	return int(math.Round(diff.Hours() / 24))
}

// StatusLabel renders a calendar-day difference as a human label. A negative
// difference means the upstream schedule is stale; it is surfaced rather
// than rendered as a negative count.
func StatusLabel(days int) string {
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days > 1:
		return fmt.Sprintf("In %d days", days)
	default:
		return "Date passed"
	}
}

// HasLiveStatus reports whether the occurrence carries a non-empty live
// status from the round.
func (c Collection) HasLiveStatus() bool {
	return strings.TrimSpace(c.LiveStatus) != ""
}

// IsCollectionDay reports whether today is a collection day for this type:
// either the scheduled date is today, or the round is reporting live status
// for today even though the schedule has not rolled over yet.
func (c Collection) IsCollectionDay(today time.Time) bool {
	if c.NextCollection != nil && SameDay(*c.NextCollection, today) {
		return true
	}
	if c.HasLiveStatus() && c.LastCollection != nil && SameDay(*c.LastCollection, today) {
		return true
	}
	return false
}

// EffectiveNextCollection resolves the date the view should report. When the
// round is still working today's collection the upstream schedule already
// points at the following occurrence, so today is substituted back in.
func (c Collection) EffectiveNextCollection(today time.Time) *time.Time {
	if c.LastCollection != nil && SameDay(*c.LastCollection, today) &&
		c.HasLiveStatus() && !strings.EqualFold(c.LiveStatus, StatusClosedCompleted) {
		d := DateOnly(today)
		return &d
	}
	return c.NextCollection
}

// Derive computes the view for one collection type. It returns false when
// the upstream gave no usable next-collection date.
func Derive(today time.Time, c Collection) (View, bool) {
	next := c.EffectiveNextCollection(today)
	if next == nil {
		return View{}, false
	}
	days := DaysUntil(today, *next)
	return View{
		Type:            c.Type,
		NextCollection:  *next,
		DaysUntil:       days,
		Status:          StatusLabel(days),
		IsCollectionDay: c.IsCollectionDay(today),
	}, true
}

// AnyCollectionDay reports whether any materialized type has a collection
// day today. This drives the refresh-interval decision after each cycle.
func (s *Snapshot) AnyCollectionDay(today time.Time) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Collections {
		if c.IsCollectionDay(today) {
			return true
		}
	}
	return false
}
