// Package uuid generates run identifiers for the orchestrator.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces time-ordered UUID v7 strings, so run identifiers sort
// by start time in logs and in the run-history table.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID v7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
