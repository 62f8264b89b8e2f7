// Package memory provides an in-memory Store for development and testing.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

// Store keeps listings and run history in process memory. Listings are
// deduplicated by link, mirroring the unique constraint the Postgres store
// relies on.
type Store struct {
	mu     sync.RWMutex
	byLink map[string]scraper.Listing
	order  []string
	runs   map[string]scraper.RunRecord
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		byLink: make(map[string]scraper.Listing),
		runs:   make(map[string]scraper.RunRecord),
	}
}

// Insert stores one listing, reporting whether it was new.
func (s *Store) Insert(_ context.Context, l scraper.Listing) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byLink[l.Link]; exists {
		return false, nil
	}
	s.byLink[l.Link] = l
	s.order = append(s.order, l.Link)
	return true, nil
}

// BeginRun records the start of one source's slice of a run.
func (s *Store) BeginRun(_ context.Context, rec scraper.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runKey(rec)] = rec
	return nil
}

// FinishRun completes a previously begun run record.
func (s *Store) FinishRun(_ context.Context, rec scraper.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := runKey(rec)
	if _, ok := s.runs[key]; !ok {
		return errors.New("run not found")
	}
	s.runs[key] = rec
	return nil
}

// Listings returns all stored listings in insertion order.
func (s *Store) Listings() []scraper.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scraper.Listing, 0, len(s.order))
	for _, link := range s.order {
		out = append(out, s.byLink[link])
	}
	return out
}

// Runs returns a copy of all run records.
func (s *Store) Runs() []scraper.RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scraper.RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		out = append(out, rec)
	}
	return out
}

// Len reports the number of distinct listings stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byLink)
}

func runKey(rec scraper.RunRecord) string {
	return rec.RunID + "/" + rec.Source
}
