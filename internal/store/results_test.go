package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

func sampleBatch(text string) *models.BatchResult {
	return models.NewBatchResult([]models.BatchItemResult{
		{Index: 0, Filename: "a.png", Status: models.StatusExtracted, Text: text, CharCount: len(text)},
	})
}

func TestResultStore_PutGet(t *testing.T) {
	s := NewResultStore(time.Minute)
	defer s.Close()

	id := s.Put(sampleBatch("hello"))
	require.NotEmpty(t, id)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hello", got.Items[0].Text)

	_, ok = s.Get("no-such-id")
	assert.False(t, ok)
}

func TestResultStore_DistinctIDs(t *testing.T) {
	s := NewResultStore(time.Minute)
	defer s.Close()

	first := s.Put(sampleBatch("one"))
	second := s.Put(sampleBatch("two"))

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, s.Len())
}

func TestResultStore_Expiry(t *testing.T) {
	s := NewResultStore(15 * time.Millisecond)
	defer s.Close()

	id := s.Put(sampleBatch("short lived"))

	_, ok := s.Get(id)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = s.Get(id)
	assert.False(t, ok, "expired entries must read as absent")
}

func TestResultStore_Sweep(t *testing.T) {
	s := NewResultStore(time.Minute)
	defer s.Close()

	s.Put(sampleBatch("stale"))
	keep := s.Put(sampleBatch("fresh"))

	// Backdate everything but the entry we want to keep.
	s.mu.Lock()
	for id, e := range s.entries {
		if id != keep {
			e.expiresAt = time.Now().Add(-time.Second)
			s.entries[id] = e
		}
	}
	s.mu.Unlock()

	s.sweep()

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(keep)
	assert.True(t, ok)
}

func TestResultStore_DefaultTTL(t *testing.T) {
	s := NewResultStore(0)
	defer s.Close()

	assert.Equal(t, 15*time.Minute, s.ttl)
}

func TestResultStore_CloseIsIdempotent(t *testing.T) {
	s := NewResultStore(time.Minute)

	s.Close()
	assert.NotPanics(t, s.Close)

	// The store stays readable after Close; only the janitor stops.
	id := s.Put(sampleBatch("after close"))
	_, ok := s.Get(id)
	assert.True(t, ok)
}
