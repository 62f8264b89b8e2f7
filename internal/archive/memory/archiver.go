// Package memory stores page snapshots in-memory for development.
package memory

import (
	"context"
	"sync"
)

// Archiver keeps snapshots in a map keyed by object name.
type Archiver struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty in-memory Archiver.
func New() *Archiver {
	return &Archiver{objects: make(map[string][]byte)}
}

// Save stores a copy of the data under the object name.
func (a *Archiver) Save(_ context.Context, objectName string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[objectName] = append([]byte(nil), data...)
	return nil
}

// Get returns the stored bytes for an object name.
func (a *Archiver) Get(objectName string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[objectName]
	return data, ok
}

// Names returns the stored object names.
func (a *Archiver) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.objects))
	for name := range a.objects {
		out = append(out, name)
	}
	return out
}
