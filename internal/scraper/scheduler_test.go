package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	src := &fakeSource{name: "alpha", listings: []Listing{mkListing("alpha", 1)}}
	o.Register(src)

	o.StartScheduler(15*time.Millisecond, 1)
	require.True(t, o.SchedulerActive())
	require.NotNil(t, o.Stats().NextRun, "starting the scheduler sets the next run estimate")

	require.Eventually(t, func() bool { return o.Stats().TotalRuns >= 1 },
		2*time.Second, 5*time.Millisecond)

	o.StopScheduler()
	require.False(t, o.SchedulerActive())
	require.Nil(t, o.Stats().NextRun, "stopping the scheduler clears the next run estimate")

	runs := o.Stats().TotalRuns
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, runs, o.Stats().TotalRuns, "no tick may fire after stop")
}

func TestSchedulerStartTwiceIsNoOp(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	o.Register(&fakeSource{name: "alpha"})

	o.StartScheduler(time.Hour, 1)
	defer o.StopScheduler()
	first := o.Stats().NextRun
	require.NotNil(t, first)

	o.StartScheduler(time.Minute, 1)
	require.True(t, o.SchedulerActive())
	require.Equal(t, *first, *o.Stats().NextRun, "a second start must not reset the schedule")
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	o.StopScheduler()
	require.False(t, o.SchedulerActive())
}

func TestSchedulerRejectsBadInterval(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	o.StartScheduler(0, 1)
	require.False(t, o.SchedulerActive())
	require.Nil(t, o.Stats().NextRun)
}

func TestSchedulerSkipsTicksWhileRunInFlight(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, newMemStore(), &memPublisher{})
	slow := &fakeSource{
		name:     "slow",
		listings: []Listing{mkListing("slow", 1)},
		release:  make(chan struct{}),
	}
	o.Register(slow)

	o.StartScheduler(10*time.Millisecond, 1)
	require.Eventually(t, func() bool { return slow.callCount() == 1 },
		2*time.Second, time.Millisecond)

	// Plenty of ticks pass while the first run hangs; all must be skipped.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, slow.callCount())

	o.StopScheduler()
	close(slow.release)
	require.Eventually(t, func() bool { return o.Stats().TotalRuns == 1 },
		2*time.Second, 5*time.Millisecond)
}
