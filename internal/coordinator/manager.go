package coordinator

import (
	"context"
	"log"
	"sync"
	"time"
)

// Manager runs one coordinator per configured address. Addresses are fully
// independent: each has its own loop, its own interval, its own last-fetched
// data.
type Manager struct {
	fetcher        Fetcher
	notifier       Notifier
	normalInterval time.Duration
	shortInterval  time.Duration

	mu      sync.Mutex
	running map[int64]*runningCoordinator
}

type runningCoordinator struct {
	coordinator *Coordinator
	cancel      context.CancelFunc
}

// NewManager creates a manager. notifier may be nil.
func NewManager(fetcher Fetcher, notifier Notifier, normal, short time.Duration) *Manager {
	return &Manager{
		fetcher:        fetcher,
		notifier:       notifier,
		normalInterval: normal,
		shortInterval:  short,
		running:        make(map[int64]*runningCoordinator),
	}
}

// StartAddress launches a coordinator for an address. Starting an address
// that already runs is a no-op.
func (m *Manager) StartAddress(ctx context.Context, addressID int64, uprn string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.running[addressID]; exists {
		return
	}

	coord := New(addressID, uprn, m.fetcher, m.notifier, m.normalInterval, m.shortInterval)
	runCtx, cancel := context.WithCancel(ctx)
	m.running[addressID] = &runningCoordinator{coordinator: coord, cancel: cancel}

	log.Printf("Starting coordinator for address %d (UPRN %s)", addressID, uprn)
	go coord.Run(runCtx)
}

// StopAddress cancels the coordinator for an address. An in-flight fetch is
// abandoned via its context.
func (m *Manager) StopAddress(addressID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rc, exists := m.running[addressID]; exists {
		rc.cancel()
		delete(m.running, addressID)
	}
}

// Get returns the coordinator for an address, if it is running.
func (m *Manager) Get(addressID int64) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.running[addressID]
	if !ok {
		return nil, false
	}
	return rc.coordinator, true
}

// StopAll cancels every running coordinator.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rc := range m.running {
		rc.cancel()
		delete(m.running, id)
	}
}
