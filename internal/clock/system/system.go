// Package system provides the wall-clock implementation of scraper.Clock.
package system

import "time"

// Clock reports real time in UTC. Listings and run statistics are stamped
// through this so tests can substitute a fixed clock.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
