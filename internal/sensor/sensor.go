// Package sensor translates fetched collection data into the exposed
// values: per collection type, a next-collection value and a live-status
// value, each a state string with attributes.
package sensor

import (
	"time"

	"bins-status-backend/internal/bins"
)

// StatusUnavailable is the live-status state when the round has reported
// nothing for this property.
const StatusUnavailable = "No Status Available"

// NextCollection is the exposed next-collection value for one type.
type NextCollection struct {
	State      string                   `json:"state"` // YYYY-MM-DD
	Attributes NextCollectionAttributes `json:"attributes"`
}

// NextCollectionAttributes carries the derived date attributes.
type NextCollectionAttributes struct {
	DaysUntilCollection int    `json:"days_until_collection"`
	Status              string `json:"status"`
	IsCollectionDay     bool   `json:"is_collection_day"`
}

// LiveStatus is the exposed live-status value for one type. Schedule, round
// and reason fields pass through from upstream unchanged.
type LiveStatus struct {
	State      string               `json:"state"`
	Attributes LiveStatusAttributes `json:"attributes"`
}

// LiveStatusAttributes carries the pass-through occurrence attributes.
// CompletedTime is a full timestamp, not a bare time, so completions stay
// unambiguous across midnight.
type LiveStatusAttributes struct {
	IsCollectionDay bool       `json:"is_collection_day"`
	CollectionType  bins.Type  `json:"collection_type"`
	Reason          string     `json:"reason,omitempty"`
	Schedule        string     `json:"schedule"`
	Round           string     `json:"round"`
	RoundGroup      string     `json:"round_group"`
	CompletedTime   *time.Time `json:"completed_time,omitempty"`
	LastUpdated     time.Time  `json:"last_updated"`
}

// Entry pairs the two exposed values for one materialized collection type.
type Entry struct {
	Type           bins.Type       `json:"collection_type"`
	NextCollection *NextCollection `json:"next_collection,omitempty"`
	LiveStatus     LiveStatus      `json:"live_status"`
}

// Build derives the exposed values for every collection type present in the
// snapshot. Types absent upstream produce no entry at all.
func Build(today time.Time, snapshot *bins.Snapshot) []Entry {
	var entries []Entry
	if snapshot == nil {
		return entries
	}

	for _, t := range snapshot.SortedTypes() {
		col := snapshot.Collections[t]
		entry := Entry{
			Type:       t,
			LiveStatus: buildLiveStatus(today, col, snapshot.FetchedAt),
		}
		if view, ok := bins.Derive(today, col); ok {
			entry.NextCollection = &NextCollection{
				State: view.NextCollection.Format("2006-01-02"),
				Attributes: NextCollectionAttributes{
					DaysUntilCollection: view.DaysUntil,
					Status:              view.Status,
					IsCollectionDay:     view.IsCollectionDay,
				},
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func buildLiveStatus(today time.Time, col bins.Collection, fetchedAt time.Time) LiveStatus {
	state := col.LiveStatus
	if !col.HasLiveStatus() {
		state = StatusUnavailable
	}
	return LiveStatus{
		State: state,
		Attributes: LiveStatusAttributes{
			IsCollectionDay: col.IsCollectionDay(today),
			CollectionType:  col.Type,
			Reason:          col.StatusReason,
			Schedule:        col.Schedule,
			Round:           col.Round,
			RoundGroup:      col.RoundGroup,
			CompletedTime:   col.LastCompleted,
			LastUpdated:     fetchedAt,
		},
	}
}
