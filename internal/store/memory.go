package store

import (
	"errors"
	"sync"
	"time"

	"github.com/Xassemblianist/ATALWF/internal/era5"
)

var (
	// ErrNotFound is returned when no reading matches.
	ErrNotFound = errors.New("no readings stored")
)

// MemoryStore is a concurrency-safe, retention-bounded history of readings
// ordered by valid time.
type MemoryStore struct {
	mu       sync.RWMutex
	readings []era5.Reading

	maxHistory int           // max number of readings kept (<= 0 = unlimited)
	maxAge     time.Duration // max age of readings (<= 0 = unlimited)
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save records a reading. A reading with the same valid time as one already
// stored replaces it.
func (s *MemoryStore) Save(r era5.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.readings)
	for i > 0 && s.readings[i-1].ValidTime.After(r.ValidTime) {
		i--
	}
	if i > 0 && s.readings[i-1].ValidTime.Equal(r.ValidTime) {
		s.readings[i-1] = r
	} else {
		s.readings = append(s.readings, era5.Reading{})
		copy(s.readings[i+1:], s.readings[i:])
		s.readings[i] = r
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.readings) > s.maxHistory {
		over := len(s.readings) - s.maxHistory
		s.readings = s.readings[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		k := 0
		for k < len(s.readings) && s.readings[k].ValidTime.Before(cutoff) {
			k++
		}
		s.readings = s.readings[k:]
	}
}

// Latest returns the reading with the newest valid time.
func (s *MemoryStore) Latest() (era5.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return era5.Reading{}, ErrNotFound
	}
	return s.readings[len(s.readings)-1], nil
}

// Range returns readings whose valid time lies between from and to
// (inclusive). A zero bound is open.
func (s *MemoryStore) Range(from, to time.Time) ([]era5.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []era5.Reading
	for _, r := range s.readings {
		if !from.IsZero() && r.ValidTime.Before(from) {
			continue
		}
		if !to.IsZero() && r.ValidTime.After(to) {
			continue
		}
		result = append(result, r)
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len returns the number of stored readings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}
