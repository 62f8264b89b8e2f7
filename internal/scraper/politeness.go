package scraper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Delay is the respectful pause between successive page requests against
// one site. Each wait picks a random duration in [Min, Max] so the request
// cadence does not look mechanical.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// newDelay clamps the configured bounds into a usable range.
func newDelay(min, max time.Duration) Delay {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return Delay{Min: min, Max: max}
}

// Wait blocks for a randomized delay or until ctx is done.
func (d Delay) Wait(ctx context.Context) error {
	dur := d.Min
	if d.Max > d.Min {
		dur += rand.N(d.Max - d.Min)
	}
	if dur <= 0 {
		return nil
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("request delay interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Range reports the configured bounds in seconds, for status reporting.
func (d Delay) Range() [2]float64 {
	return [2]float64{d.Min.Seconds(), d.Max.Seconds()}
}
