// Package memory contains an in-memory publisher implementation for tests.
package memory

import (
	"context"
	"sync"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

// Publisher stores published listings for inspection.
type Publisher struct {
	mu       sync.RWMutex
	listings []scraper.Listing
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the listing.
func (p *Publisher) Publish(_ context.Context, l scraper.Listing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings = append(p.listings, l)
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error { return nil }

// Published returns the recorded listings.
func (p *Publisher) Published() []scraper.Listing {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]scraper.Listing, len(p.listings))
	copy(out, p.listings)
	return out
}
