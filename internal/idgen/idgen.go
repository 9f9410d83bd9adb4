// Package idgen provides an injectable UUID generator so Store
// construction stays deterministic in tests (spec §2.9).
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces a fresh opaque ID. Production code uses UUID{};
// tests use Sequential for reproducible fixtures.
type Generator interface {
	NewID() string
}

// UUID is the production Generator, backed by google/uuid v4.
type UUID struct{}

// NewID returns a fresh random UUID string.
func (UUID) NewID() string { return uuid.NewString() }

// Sequential is a deterministic Generator for tests: each call
// returns "{prefix}-{n}" with n incrementing from 1.
type Sequential struct {
	prefix string
	n      atomic.Int64
}

// NewSequential creates a Sequential generator with the given prefix.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// NewID returns the next sequential ID.
func (s *Sequential) NewID() string {
	n := s.n.Add(1)
	return fmt.Sprintf("%s-%d", s.prefix, n)
}
