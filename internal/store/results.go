package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// entry pairs a stored batch with its expiry
type entry struct {
	batch     *models.BatchResult
	expiresAt time.Time
}

// ResultStore keeps finished batches in memory so downloads and the JSON
// API can reference them after the initial response. Only extracted text
// and failure records are held; image bytes never enter the store.
// Entries expire on a TTL and a janitor goroutine reclaims them.
type ResultStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewResultStore creates a store whose entries live for ttl. A zero or
// negative ttl falls back to 15 minutes.
func NewResultStore(ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	s := &ResultStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put stores a batch and returns the ID download URLs use
func (s *ResultStore) Put(batch *models.BatchResult) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.entries[id] = entry{
		batch:     batch,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return id
}

// Get returns the batch for id. Expired entries are treated as absent
// even before the janitor reclaims them.
func (s *ResultStore) Get(id string) (*models.BatchResult, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.batch, true
}

// Len reports the number of entries currently held, expired or not
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the janitor goroutine. Safe to call more than once.
func (s *ResultStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *ResultStore) janitor() {
	interval := s.ttl
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops expired entries
func (s *ResultStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
}
