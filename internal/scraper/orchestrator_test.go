package scraper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunAllAggregatesAndCounts(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	pub := &memPublisher{}
	o := newTestOrchestrator(t, store, pub)

	alpha := &fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1), mkListing("alpha", 2)}}
	beta := &fakeSource{name: "beta", err: fmt.Errorf("no start page reachable")}
	o.Register(alpha)
	o.Register(beta)

	listings := o.RunAll(context.Background(), 3)

	require.Len(t, listings, 2)
	require.Equal(t, "alpha", listings[0].Source)
	require.Equal(t, 3, alpha.maxPagesSeen, "page cap must reach the sources")

	stats := o.Stats()
	require.Equal(t, 1, stats.TotalRuns)
	require.Equal(t, 1, stats.SuccessfulRuns)
	require.Equal(t, 1, stats.FailedRuns)
	require.Equal(t, 2, stats.TotalListings)
	require.NotNil(t, stats.LastRun)
	require.Nil(t, stats.NextRun, "next run is meaningless without a scheduler")
}

func TestRunAllAccumulatesAcrossRuns(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	pub := &memPublisher{}
	o := newTestOrchestrator(t, store, pub)
	o.Register(&fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1), mkListing("alpha", 2)}})

	o.RunAll(context.Background(), 1)
	o.RunAll(context.Background(), 1)

	stats := o.Stats()
	require.Equal(t, 2, stats.TotalRuns)
	require.Equal(t, 2, stats.SuccessfulRuns)
	require.Equal(t, 4, stats.TotalListings, "total listings counts scraped results, not unique ones")

	// The store deduplicates by link, and only genuinely new listings are
	// published.
	require.Equal(t, 2, store.insertedCount())
	require.Len(t, pub.published(), 2)
}

func TestRunAllIsolatesPanickingSource(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	o := newTestOrchestrator(t, store, &memPublisher{})
	o.Register(&fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1)}})
	o.Register(&fakeSource{name: "omega", panicMsg: "selector exploded"})

	listings := o.RunAll(context.Background(), 1)

	require.Len(t, listings, 1)
	stats := o.Stats()
	require.Equal(t, 1, stats.SuccessfulRuns)
	require.Equal(t, 1, stats.FailedRuns)
}

func TestRunAllRecordsRunHistory(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	o := newTestOrchestrator(t, store, &memPublisher{})
	o.Register(&fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1)}})
	o.Register(&fakeSource{name: "beta", err: fmt.Errorf("boom")})

	o.RunAll(context.Background(), 1)

	require.Len(t, store.began, 2)
	require.Len(t, store.finished, 2)
	require.Equal(t, store.began[0].RunID, store.began[1].RunID,
		"sources in one run share the run id")

	bysource := map[string]RunRecord{}
	for _, rec := range store.finished {
		bysource[rec.Source] = rec
	}
	require.Equal(t, RunCompleted, bysource["alpha"].Status)
	require.Equal(t, 1, bysource["alpha"].ListingsFound)
	require.Equal(t, 1, bysource["alpha"].ListingsNew)
	require.Equal(t, RunFailed, bysource["beta"].Status)
	require.Contains(t, bysource["beta"].Error, "boom")
	require.False(t, bysource["alpha"].FinishedAt.Before(bysource["alpha"].StartedAt))
}

func TestRunSingle(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	pub := &memPublisher{}
	o := newTestOrchestrator(t, store, pub)
	o.Register(&fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1)}})

	listings, err := o.RunSingle(context.Background(), "alpha", 2)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, 1, store.insertedCount())
	require.Len(t, pub.published(), 1)

	stats := o.Stats()
	require.Zero(t, stats.TotalRuns, "single-source runs do not move the aggregate counters")
	require.Zero(t, stats.SuccessfulRuns)
}

func TestRunSingleUnknownSource(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})

	_, err := o.RunSingle(context.Background(), "nope", 1)
	require.ErrorIs(t, err, ErrUnknownSource)
	require.Contains(t, err.Error(), "nope")
}

func TestRunSinglePropagatesSourceError(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	o := newTestOrchestrator(t, store, &memPublisher{})
	o.Register(&fakeSource{name: "alpha", err: fmt.Errorf("no start page reachable")})

	_, err := o.RunSingle(context.Background(), "alpha", 1)
	require.Error(t, err)
	require.Len(t, store.finished, 1)
	require.Equal(t, RunFailed, store.finished[0].Status)
}

func TestRunAllSingleFlight(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	slow := &fakeSource{
		name:     "slow",
		listings: []Listing{mkListing("slow", 1)},
		release:  make(chan struct{}),
	}
	o.Register(slow)

	done := make(chan []Listing, 1)
	go func() { done <- o.RunAll(context.Background(), 1) }()
	require.Eventually(t, func() bool { return slow.callCount() == 1 },
		time.Second, time.Millisecond)

	_, ok := o.TryRunAll(context.Background(), 1)
	require.False(t, ok, "a second run must be refused while one is in flight")

	close(slow.release)
	require.Len(t, <-done, 1)

	_, ok = o.TryRunAll(context.Background(), 1)
	require.True(t, ok)
}

func TestRegisterAndUnregister(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	o.Register(&fakeSource{name: "beta"})
	o.Register(&fakeSource{name: "alpha"})

	statuses := o.SourceStatuses()
	require.Len(t, statuses, 2)
	require.Equal(t, "alpha", statuses[0].Name, "statuses come back sorted")
	require.Equal(t, "beta", statuses[1].Name)
	require.Equal(t, [2]float64{1, 3}, statuses[0].DelayRange)

	o.Unregister("alpha")
	statuses = o.SourceStatuses()
	require.Len(t, statuses, 1)
	require.Equal(t, "beta", statuses[0].Name)

	// Unregistering twice is a no-op.
	o.Unregister("alpha")
	require.Len(t, o.SourceStatuses(), 1)
}

func TestStatsSnapshotIsolated(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	o.Register(&fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1)}})
	o.RunAll(context.Background(), 1)

	snap := o.Stats()
	require.NotNil(t, snap.LastRun)
	*snap.LastRun = time.Time{}
	snap.TotalRuns = 99

	fresh := o.Stats()
	require.Equal(t, 1, fresh.TotalRuns)
	require.False(t, fresh.LastRun.IsZero(), "mutating a snapshot must not corrupt internal state")
}
