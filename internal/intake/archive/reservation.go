// internal/intake/archive/reservation.go
package archive

import (
	"context"
	"sync"
)

// Reservation atomically reserves canonical keys. The archive's key
// namespace is the only mutable state shared between concurrent
// canonicalizations, so every claim goes through an atomic
// check-and-reserve instead of ambient shared state.
type Reservation interface {
	// Reserve claims key. It returns true when the key was free and is
	// now held by the caller, false when another canonicalization already
	// holds it.
	Reserve(ctx context.Context, key string) (bool, error)
}

// MemoryReservation is the in-process backend: a mutex-guarded set.
// Sufficient for the single-runner CI flow.
type MemoryReservation struct {
	mu   sync.Mutex
	keys map[string]bool
}

func NewMemoryReservation() *MemoryReservation {
	return &MemoryReservation{keys: make(map[string]bool)}
}

func (m *MemoryReservation) Reserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}
