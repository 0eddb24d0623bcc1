package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bins-status-backend/internal/bins"
	"bins-status-backend/internal/coordinator"
	"bins-status-backend/internal/sensor"
)

// collectionEntry is the per-type record returned by the collections
// endpoint: the upstream occurrence data plus the derived values.
type collectionEntry struct {
	Type            bins.Type  `json:"collection_type"`
	NextCollection  string     `json:"next_collection,omitempty"`
	LastCollection  string     `json:"last_collection,omitempty"`
	CompletedTime   *time.Time `json:"completed_time,omitempty"`
	LiveStatus      string     `json:"live_status,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Schedule        string     `json:"schedule"`
	Round           string     `json:"round"`
	RoundGroup      string     `json:"round_group"`
	DaysUntil       *int       `json:"days_until_collection,omitempty"`
	Status          string     `json:"status,omitempty"`
	IsCollectionDay bool       `json:"is_collection_day"`
}

// GetCollections handles GET /api/addresses/:id/collections.
func (h *Handler) GetCollections(c *gin.Context) {
	snapshot, ok := h.snapshotFor(c)
	if !ok {
		return
	}

	today := h.today()
	entries := make([]collectionEntry, 0, len(snapshot.Collections))
	for _, t := range snapshot.SortedTypes() {
		col := snapshot.Collections[t]
		entry := collectionEntry{
			Type:            t,
			CompletedTime:   col.LastCompleted,
			LiveStatus:      col.LiveStatus,
			Reason:          col.StatusReason,
			Schedule:        col.Schedule,
			Round:           col.Round,
			RoundGroup:      col.RoundGroup,
			IsCollectionDay: col.IsCollectionDay(today),
		}
		if col.LastCollection != nil {
			entry.LastCollection = col.LastCollection.Format("2006-01-02")
		}
		if view, derivable := bins.Derive(today, col); derivable {
			entry.NextCollection = view.NextCollection.Format("2006-01-02")
			days := view.DaysUntil
			entry.DaysUntil = &days
			entry.Status = view.Status
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"fetched_at":  snapshot.FetchedAt,
		"collections": entries,
	})
}

// GetSensors handles GET /api/addresses/:id/sensors: the exposed
// next-collection and live-status values per materialized type.
func (h *Handler) GetSensors(c *gin.Context) {
	snapshot, ok := h.snapshotFor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fetched_at": snapshot.FetchedAt,
		"sensors":    sensor.Build(h.today(), snapshot),
	})
}

// snapshotFor resolves the address ID in the request to the latest snapshot,
// writing the appropriate error response when it cannot.
func (h *Handler) snapshotFor(c *gin.Context) (*bins.Snapshot, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address ID"})
		return nil, false
	}

	coord, running := h.manager.Get(id)
	if !running {
		if _, err := h.store.GetAddress(c.Request.Context(), id); errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "poller is not running for this address"})
		}
		return nil, false
	}

	snapshot, err := coord.Snapshot()
	if err != nil {
		if errors.Is(err, coordinator.ErrNoData) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no collection data fetched yet"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collection data unavailable: " + err.Error()})
		}
		return nil, false
	}
	return snapshot, true
}
