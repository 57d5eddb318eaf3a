// Package guard keeps at most one generation in flight per key.
package guard

import (
	"strings"
	"sync"
)

// Registry is a keyed single-flight admission table. The zero value is
// ready to use.
type Registry struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New() *Registry {
	return &Registry{inFlight: make(map[string]struct{})}
}

// TryStart marks key in flight and reports true, or reports false if it
// already was.
func (r *Registry) TryStart(key string) bool {
	key = strings.TrimSpace(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight == nil {
		r.inFlight = make(map[string]struct{})
	}
	if _, busy := r.inFlight[key]; busy {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Registry) Release(key string) {
	key = strings.TrimSpace(key)
	r.mu.Lock()
	delete(r.inFlight, key)
	r.mu.Unlock()
}

func (r *Registry) InFlight(key string) bool {
	key = strings.TrimSpace(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inFlight[key]
	return busy
}

// Len reports the number of keys in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

// Do runs fn while holding key. It reports false without calling fn when
// key is already held. The key is released however fn returns, panics
// included.
func (r *Registry) Do(key string, fn func()) bool {
	if !r.TryStart(key) {
		return false
	}
	defer r.Release(key)
	fn()
	return true
}
