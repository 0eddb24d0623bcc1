package coordinator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"bins-status-backend/internal/bins"
)

// Fetcher retrieves collection data for a property. Implemented by
// *council.Client and by test doubles.
type Fetcher interface {
	FetchCollections(ctx context.Context, uprn string) (*bins.Snapshot, error)
	Location() *time.Location
}

// Notifier receives live-status change events after a successful cycle.
type Notifier interface {
	NotifyStatusChange(addressID int64, t bins.Type, status string)
}

// ErrNoData is returned by Snapshot before the first successful fetch.
var ErrNoData = errors.New("no collection data fetched yet")

// Coordinator owns one configured address: its UPRN, the last fetched
// snapshot, and the current refresh interval. Exactly one fetch is in flight
// at a time; the next cycle is scheduled only after the previous one
// finishes.
type Coordinator struct {
	addressID int64
	uprn      string
	fetcher   Fetcher
	notifier  Notifier

	normalInterval time.Duration
	shortInterval  time.Duration

	mu       sync.RWMutex
	snapshot *bins.Snapshot
	interval time.Duration
	lastErr  error

	now func() time.Time
}

// New creates a coordinator for one address. notifier may be nil.
func New(addressID int64, uprn string, fetcher Fetcher, notifier Notifier, normal, short time.Duration) *Coordinator {
	return &Coordinator{
		addressID:      addressID,
		uprn:           uprn,
		fetcher:        fetcher,
		notifier:       notifier,
		normalInterval: normal,
		shortInterval:  short,
		interval:       normal,
		now:            time.Now,
	}
}

// Run executes fetch cycles until the context is cancelled. The first cycle
// runs immediately; each later cycle waits out the interval decided by the
// previous one.
func (c *Coordinator) Run(ctx context.Context) {
	wait := c.RefreshOnce(ctx)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Coordinator for address %d shutting down.", c.addressID)
			return
		case <-timer.C:
			wait = c.RefreshOnce(ctx)
			timer.Reset(wait)
		}
	}
}

// RefreshOnce performs a single fetch cycle and returns the delay before the
// next one. A failed fetch keeps the previous snapshot and the current
// interval; the cycle never panics or stops the loop.
func (c *Coordinator) RefreshOnce(ctx context.Context) time.Duration {
	snapshot, err := c.fetcher.FetchCollections(ctx, c.uprn)
	if err != nil {
		log.Printf("Fetch cycle failed for address %d: %v. Keeping last known data.", c.addressID, err)
		c.mu.Lock()
		c.lastErr = err
		interval := c.interval
		c.mu.Unlock()
		return interval
	}

	today := c.now().In(c.fetcher.Location())
	c.warnAnomalies(today, snapshot)

	collectionDay := snapshot.AnyCollectionDay(today)
	interval := c.normalInterval
	if collectionDay {
		interval = c.shortInterval
	}

	c.mu.Lock()
	previous := c.snapshot
	c.snapshot = snapshot
	c.lastErr = nil
	if c.interval != interval {
		if collectionDay {
			log.Printf("Collection day for address %d, refreshing every %s", c.addressID, interval)
		} else {
			log.Printf("No collection day for address %d, refreshing every %s", c.addressID, interval)
		}
	}
	c.interval = interval
	c.mu.Unlock()

	c.notifyChanges(previous, snapshot)
	return interval
}

// warnAnomalies logs collections whose scheduled date is already in the
// past. The stale date is surfaced in the derived view as "Date passed"
// rather than clamped.
func (c *Coordinator) warnAnomalies(today time.Time, snapshot *bins.Snapshot) {
	for _, t := range snapshot.SortedTypes() {
		col := snapshot.Collections[t]
		if col.NextCollection != nil && bins.DaysUntil(today, *col.NextCollection) < 0 {
			log.Printf("Warning: %s collection for address %d has a scheduled date in the past (%s)",
				t, c.addressID, col.NextCollection.Format("2006-01-02"))
		}
	}
}

// notifyChanges dispatches a notification for every type whose live status
// changed since the previous snapshot.
func (c *Coordinator) notifyChanges(previous, current *bins.Snapshot) {
	if c.notifier == nil || current == nil {
		return
	}
	for _, t := range current.SortedTypes() {
		col := current.Collections[t]
		if !col.HasLiveStatus() {
			continue
		}
		if previous != nil {
			if prev, ok := previous.Get(t); ok && prev.LiveStatus == col.LiveStatus {
				continue
			}
		}
		c.notifier.NotifyStatusChange(c.addressID, t, col.LiveStatus)
	}
}

// Snapshot returns the last successful snapshot. Before the first successful
// fetch it returns ErrNoData (or the fetch error, if one has occurred).
func (c *Coordinator) Snapshot() (*bins.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		if c.lastErr != nil {
			return nil, c.lastErr
		}
		return nil, ErrNoData
	}
	return c.snapshot, nil
}

// Interval returns the delay the next cycle will wait.
func (c *Coordinator) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// UPRN returns the property identifier this coordinator polls.
func (c *Coordinator) UPRN() string {
	return c.uprn
}
