package headless

import (
	"context"
	"errors"
)

// Noop stands in for the renderer when no browser is available; it always
// fails so DOM sources report their pages as unreachable instead of silently
// scraping nothing.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render returns an error since this is a stub implementation.
func (Noop) Render(_ context.Context, _ string) (string, error) {
	return "", errors.New("headless renderer not configured")
}
