package breaker

import (
	"sort"
	"sync"
)

// Registry holds one breaker per service name, created lazily on first
// use. Services are not known in advance; breakers live for the process
// lifetime and reset on restart.
type Registry struct {
	config Config

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers share the given config.
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:   config,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the service, creating it on first use.
// At most one breaker instance ever exists per service name.
func (r *Registry) Get(service string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[service]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check under the write lock.
	if b, ok := r.breakers[service]; ok {
		return b
	}
	b = New(service, r.config)
	r.breakers[service] = b
	return b
}

// Statuses returns a snapshot of every breaker, sorted by service name.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]Status, 0, len(r.breakers))
	for _, b := range r.breakers {
		statuses = append(statuses, b.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Service < statuses[j].Service
	})
	return statuses
}

// ResetAll forces every breaker closed. Equivalent to a process restart
// from the breakers' point of view.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
