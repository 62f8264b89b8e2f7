package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownSource is returned when a run names a source nobody registered.
var ErrUnknownSource = errors.New("unknown source")

// Orchestrator fans registered sources out concurrently, aggregates their
// listings, persists and publishes the new ones, and keeps run statistics.
// Sources run in isolation: one failing, panicking or coming back empty
// never affects the others. All counters move at a single point after
// fan-in, so concurrent sources never race on them.
type Orchestrator struct {
	store  Store
	pub    Publisher
	clock  Clock
	ids    IDGenerator
	logger *zap.Logger

	mu       sync.Mutex
	sources  map[string]Source
	stats    Stats
	interval time.Duration

	// runMu serializes whole fan-out runs; the scheduler and the HTTP
	// trigger go through TryRunAll so an in-flight run is skipped, not
	// queued up behind.
	runMu sync.Mutex

	schedMu   sync.Mutex
	schedStop chan struct{}
}

// NewOrchestrator wires the run coordinator. A nil publisher falls back to
// the no-op one.
func NewOrchestrator(
	store Store,
	pub Publisher,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("orchestrator: store required")
	}
	if clock == nil {
		return nil, fmt.Errorf("orchestrator: clock required")
	}
	if ids == nil {
		return nil, fmt.Errorf("orchestrator: id generator required")
	}
	if logger == nil {
		return nil, fmt.Errorf("orchestrator: logger required")
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Orchestrator{
		store:   store,
		pub:     pub,
		clock:   clock,
		ids:     ids,
		logger:  logger,
		sources: make(map[string]Source),
	}, nil
}

// Register adds a source, replacing any previous one with the same name.
func (o *Orchestrator) Register(src Source) {
	name := src.Name()
	if name == "" {
		o.logger.Warn("ignoring source with empty name")
		return
	}
	o.mu.Lock()
	o.sources[name] = src
	o.mu.Unlock()
	o.logger.Info("source registered", zap.String("source", name))
}

// Unregister removes a source. A run already in flight keeps its snapshot of
// the source set.
func (o *Orchestrator) Unregister(name string) {
	o.mu.Lock()
	_, ok := o.sources[name]
	delete(o.sources, name)
	o.mu.Unlock()
	if !ok {
		o.logger.Warn("source not found", zap.String("source", name))
		return
	}
	o.logger.Info("source removed", zap.String("source", name))
}

// RunAll scrapes every registered source concurrently and returns the
// combined listings. It blocks while another run is in flight.
func (o *Orchestrator) RunAll(ctx context.Context, maxPages int) []Listing {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.runAll(ctx, maxPages)
}

// TryRunAll is RunAll unless a run is already in flight, in which case it
// reports false without doing anything.
func (o *Orchestrator) TryRunAll(ctx context.Context, maxPages int) ([]Listing, bool) {
	if !o.runMu.TryLock() {
		return nil, false
	}
	defer o.runMu.Unlock()
	return o.runAll(ctx, maxPages), true
}

// TriggerRunAll starts a full run in the background and reports whether it
// was started. A run already in flight keeps the trigger from starting a
// second one.
func (o *Orchestrator) TriggerRunAll(maxPages int) bool {
	if !o.runMu.TryLock() {
		return false
	}
	go func() {
		defer o.runMu.Unlock()
		o.runAll(context.Background(), maxPages)
	}()
	return true
}

// HasSource reports whether a source is registered under the given name.
func (o *Orchestrator) HasSource(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.sources[name]
	return ok
}

func (o *Orchestrator) runAll(ctx context.Context, maxPages int) []Listing {
	runID := o.newRunID()

	o.mu.Lock()
	names := make([]string, 0, len(o.sources))
	for name := range o.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	srcs := make([]Source, len(names))
	for i, name := range names {
		srcs[i] = o.sources[name]
	}
	o.mu.Unlock()

	started := o.clock.Now()
	o.logger.Info("starting all sources",
		zap.String("run_id", runID), zap.Int("sources", len(names)), zap.Int("max_pages", maxPages))

	results := make([][]Listing, len(srcs))
	errs := make([]error, len(srcs))
	startedAt := make([]time.Time, len(srcs))
	finishedAt := make([]time.Time, len(srcs))

	var wg sync.WaitGroup
	for i := range srcs {
		wg.Add(1)
		go func(i int, name string, src Source) {
			defer wg.Done()
			defer func() {
				finishedAt[i] = o.clock.Now()
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("source panic: %v", r)
				}
			}()
			startedAt[i] = o.clock.Now()
			o.logRunStart(ctx, runID, name, startedAt[i])
			results[i], errs[i] = src.Scrape(ctx, maxPages)
		}(i, names[i], srcs[i])
	}
	wg.Wait()

	var all []Listing
	succeeded, failed := 0, 0
	for i := range srcs {
		name := names[i]
		if errs[i] != nil {
			failed++
			SourceRuns.WithLabelValues(name, "failed").Inc()
			o.logger.Error("source failed", zap.String("source", name), zap.Error(errs[i]))
			o.logRunFinish(ctx, RunRecord{
				RunID: runID, Source: name, Status: RunFailed,
				StartedAt: startedAt[i], FinishedAt: finishedAt[i],
				Error: errs[i].Error(),
			})
			continue
		}
		succeeded++
		SourceRuns.WithLabelValues(name, "completed").Inc()
		newCount := o.persist(ctx, results[i])
		all = append(all, results[i]...)
		o.logger.Info("source completed",
			zap.String("source", name), zap.Int("listings", len(results[i])), zap.Int("new", newCount))
		o.logRunFinish(ctx, RunRecord{
			RunID: runID, Source: name, Status: RunCompleted,
			StartedAt: startedAt[i], FinishedAt: finishedAt[i],
			ListingsFound: len(results[i]), ListingsNew: newCount,
		})
	}

	now := o.clock.Now()
	o.mu.Lock()
	o.stats.TotalRuns++
	o.stats.SuccessfulRuns += succeeded
	o.stats.FailedRuns += failed
	o.stats.TotalListings += len(all)
	last := now
	o.stats.LastRun = &last
	if o.interval > 0 {
		next := now.Add(o.interval)
		o.stats.NextRun = &next
	}
	o.mu.Unlock()

	o.logger.Info("all sources completed",
		zap.String("run_id", runID), zap.Int("listings", len(all)),
		zap.Duration("duration", now.Sub(started)))
	return all
}

// RunSingle scrapes exactly one source by name. Unlike RunAll it does not
// touch the aggregate counters; those describe full fan-out runs.
func (o *Orchestrator) RunSingle(ctx context.Context, name string, maxPages int) ([]Listing, error) {
	o.mu.Lock()
	src, ok := o.sources[name]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	runID := o.newRunID()
	started := o.clock.Now()
	o.logRunStart(ctx, runID, name, started)

	listings, err := src.Scrape(ctx, maxPages)
	finished := o.clock.Now()
	if err != nil {
		SourceRuns.WithLabelValues(name, "failed").Inc()
		o.logRunFinish(ctx, RunRecord{
			RunID: runID, Source: name, Status: RunFailed,
			StartedAt: started, FinishedAt: finished, Error: err.Error(),
		})
		return nil, err
	}

	newCount := o.persist(ctx, listings)
	SourceRuns.WithLabelValues(name, "completed").Inc()
	o.logRunFinish(ctx, RunRecord{
		RunID: runID, Source: name, Status: RunCompleted,
		StartedAt: started, FinishedAt: finished,
		ListingsFound: len(listings), ListingsNew: newCount,
	})
	o.logger.Info("source completed",
		zap.String("source", name), zap.Int("listings", len(listings)), zap.Int("new", newCount))
	return listings, nil
}

// persist writes listings through the deduplicating store and publishes the
// ones that were actually new. Returns the new count.
func (o *Orchestrator) persist(ctx context.Context, listings []Listing) int {
	newCount := 0
	for _, l := range listings {
		inserted, err := o.store.Insert(ctx, l)
		if err != nil {
			o.logger.Warn("store insert failed", zap.String("link", l.Link), zap.Error(err))
			continue
		}
		if !inserted {
			ListingsDuplicate.Inc()
			continue
		}
		newCount++
		ListingsStored.Inc()
		if err := o.pub.Publish(ctx, l); err != nil {
			o.logger.Warn("listing publish failed", zap.String("link", l.Link), zap.Error(err))
		}
	}
	return newCount
}

// Stats returns a copy of the aggregate counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.stats
	if o.stats.LastRun != nil {
		t := *o.stats.LastRun
		out.LastRun = &t
	}
	if o.stats.NextRun != nil {
		t := *o.stats.NextRun
		out.NextRun = &t
	}
	return out
}

// SourceStatuses describes the registered sources, sorted by name.
func (o *Orchestrator) SourceStatuses() []SourceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.sources))
	for name := range o.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	statuses := make([]SourceStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, o.sources[name].Status())
	}
	return statuses
}

func (o *Orchestrator) newRunID() string {
	id, err := o.ids.NewID()
	if err != nil {
		o.logger.Warn("run id generation failed", zap.Error(err))
		return fmt.Sprintf("run-%d", o.clock.Now().UnixNano())
	}
	return id
}

func (o *Orchestrator) logRunStart(ctx context.Context, runID, source string, at time.Time) {
	rec := RunRecord{RunID: runID, Source: source, Status: RunRunning, StartedAt: at}
	if err := o.store.BeginRun(ctx, rec); err != nil {
		o.logger.Warn("run history start failed", zap.String("source", source), zap.Error(err))
	}
}

func (o *Orchestrator) logRunFinish(ctx context.Context, rec RunRecord) {
	if err := o.store.FinishRun(ctx, rec); err != nil {
		o.logger.Warn("run history finish failed", zap.String("source", rec.Source), zap.Error(err))
	}
}
