// Package persist provides durable key/value storage for setting groups.
//
// Values are plain decoded data (maps, slices, strings, float64 numbers,
// bools). Backends are selected per group scope through a Router.
package persist

import (
	"errors"
	"sync"

	"github.com/dshills/sheetcontrols/internal/config/merge"
	"github.com/dshills/sheetcontrols/internal/config/schema"
)

// ErrClosed indicates the backend has been closed.
var ErrClosed = errors.New("persist: backend closed")

// Backend reads and writes setting values by key.
type Backend interface {
	// Read returns the stored value for key. found is false when nothing
	// has been written.
	Read(key string) (value any, found bool, err error)

	// Write stores value under key, replacing any previous value.
	Write(key string, value any) error

	// Close releases resources.
	Close() error
}

// Router picks a backend for a group scope.
type Router struct {
	Client Backend
	World  Backend
}

// For returns the backend for scope, falling back to the other backend
// when one is unset. It returns nil when neither is set.
func (r Router) For(scope schema.Scope) Backend {
	switch scope {
	case schema.ScopeWorld:
		if r.World != nil {
			return r.World
		}
		return r.Client
	default:
		if r.Client != nil {
			return r.Client
		}
		return r.World
	}
}

// Close closes both backends once each.
func (r Router) Close() error {
	var errs []error
	if r.Client != nil {
		errs = append(errs, r.Client.Close())
	}
	if r.World != nil && r.World != r.Client {
		errs = append(errs, r.World.Close())
	}
	return errors.Join(errs...)
}

// Memory is an in-process backend.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]any
	writes int
	closed bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]any)}
}

// Read implements Backend.
func (m *Memory) Read(key string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	return merge.CloneValue(v), ok, nil
}

// Write implements Backend.
func (m *Memory) Write(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = merge.CloneValue(value)
	m.writes++
	return nil
}

// Writes returns how many writes have succeeded.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Close implements Backend.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
