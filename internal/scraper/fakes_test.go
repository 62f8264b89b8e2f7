package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Shared fakes for the package tests. Everything is safe for use from the
// orchestrator's source goroutines.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
}

// Now advances a millisecond per call so consecutive timestamps differ.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("run-%04d", g.n), nil
}

type memStore struct {
	mu        sync.Mutex
	byLink    map[string]Listing
	inserted  []Listing
	began     []RunRecord
	finished  []RunRecord
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{byLink: make(map[string]Listing)}
}

func (s *memStore) Insert(_ context.Context, l Listing) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.byLink[l.Link]; ok {
		return false, nil
	}
	s.byLink[l.Link] = l
	s.inserted = append(s.inserted, l)
	return true, nil
}

func (s *memStore) BeginRun(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.began = append(s.began, rec)
	return nil
}

func (s *memStore) FinishRun(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, rec)
	return nil
}

func (s *memStore) insertedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type memPublisher struct {
	mu     sync.Mutex
	events []Listing
	closed bool
}

func (p *memPublisher) Publish(_ context.Context, l Listing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, l)
	return nil
}

func (p *memPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memPublisher) published() []Listing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Listing(nil), p.events...)
}

type fakeSource struct {
	name     string
	listings []Listing
	err      error
	panicMsg string
	release  chan struct{}

	mu           sync.Mutex
	calls        int
	maxPagesSeen int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Status() SourceStatus {
	return SourceStatus{
		Name:       s.name,
		BaseURL:    "https://" + s.name + ".example.vn",
		DelayRange: [2]float64{1, 3},
	}
}

func (s *fakeSource) Scrape(_ context.Context, maxPages int) ([]Listing, error) {
	s.mu.Lock()
	s.calls++
	s.maxPagesSeen = maxPages
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.listings, s.err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type denyAllPolicy struct{}

func (denyAllPolicy) Allowed(context.Context, string) bool { return false }

type fakeRenderer struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	visits []string
}

func (r *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	r.mu.Lock()
	r.visits = append(r.visits, url)
	r.mu.Unlock()
	if err, ok := r.errs[url]; ok {
		return "", err
	}
	html, ok := r.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return html, nil
}

type fakePageClient struct {
	mu     sync.Mutex
	pages  map[string][]byte
	status map[string]int
	errs   map[string]error
	visits []string
}

func (c *fakePageClient) Get(_ context.Context, url string) ([]byte, int, error) {
	c.mu.Lock()
	c.visits = append(c.visits, url)
	c.mu.Unlock()
	if err, ok := c.errs[url]; ok {
		return nil, 0, err
	}
	body, ok := c.pages[url]
	if !ok {
		return nil, 404, nil
	}
	status := 200
	if st, ok := c.status[url]; ok {
		status = st
	}
	return body, status, nil
}

type memArchiver struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemArchiver() *memArchiver {
	return &memArchiver{objects: make(map[string][]byte)}
}

func (a *memArchiver) Save(_ context.Context, name string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[name] = append([]byte(nil), data...)
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash([]byte) (string, error) {
	return "abcdef0123456789abcdef0123456789", nil
}

func mkListing(source string, n int) Listing {
	return Listing{
		Title:        fmt.Sprintf("Bán nhà %s %d", source, n),
		Price:        2_500_000_000,
		Area:         100,
		PricePerArea: 25_000_000,
		Location:     "Quận 7, TP.HCM",
		PropertyType: "Nhà riêng",
		Link:         fmt.Sprintf("https://%s.example.vn/tin/%d", source, n),
		Source:       source,
	}
}

func newTestOrchestrator(t *testing.T, store Store, pub Publisher) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(store, pub, newFakeClock(), &seqIDs{}, zap.NewNop())
	require.NoError(t, err)
	return o
}
