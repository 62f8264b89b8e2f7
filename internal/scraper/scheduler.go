package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartScheduler launches the recurring background run. The first run fires
// after one full interval. Calling it while a scheduler is already active is
// a warning no-op.
func (o *Orchestrator) StartScheduler(interval time.Duration, maxPages int) {
	if interval <= 0 {
		o.logger.Warn("scheduler interval must be positive; not starting",
			zap.Duration("interval", interval))
		return
	}
	o.schedMu.Lock()
	defer o.schedMu.Unlock()
	if o.schedStop != nil {
		o.logger.Warn("scheduler is already running")
		return
	}
	stop := make(chan struct{})
	o.schedStop = stop

	o.mu.Lock()
	o.interval = interval
	next := o.clock.Now().Add(interval)
	o.stats.NextRun = &next
	o.mu.Unlock()

	go o.scheduleLoop(interval, maxPages, stop)
	o.logger.Info("scheduler started", zap.Duration("interval", interval))
}

// StopScheduler prevents any further scheduled runs. A run already in flight
// is left to finish. Calling it with no scheduler active is a warning no-op.
func (o *Orchestrator) StopScheduler() {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()
	if o.schedStop == nil {
		o.logger.Warn("scheduler is not running")
		return
	}
	close(o.schedStop)
	o.schedStop = nil

	o.mu.Lock()
	o.interval = 0
	o.stats.NextRun = nil
	o.mu.Unlock()

	o.logger.Info("scheduler stopped")
}

// SchedulerActive reports whether the recurring runner is on.
func (o *Orchestrator) SchedulerActive() bool {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()
	return o.schedStop != nil
}

func (o *Orchestrator) scheduleLoop(interval time.Duration, maxPages int, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A tick may already be buffered when the scheduler is
			// stopped; the stop signal wins.
			select {
			case <-stop:
				return
			default:
			}
			o.logger.Info("running scheduled scrape")
			listings, ok := o.TryRunAll(context.Background(), maxPages)
			if !ok {
				o.logger.Warn("previous run still in flight; skipping scheduled scrape")
				continue
			}
			o.logger.Info("scheduled scrape complete", zap.Int("listings", len(listings)))
		}
	}
}
