package integration

import (
	"sort"
	"sync"
)

// AdapterFactory builds an adapter bound to one credential set. It returns a
// *ValidationError when required credential fields are missing.
type AdapterFactory func(creds Credentials) (PlatformAdapter, error)

// Registry maps platform tags to adapter constructors.
// It is populated once at startup and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[PlatformCode]AdapterFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[PlatformCode]AdapterFactory),
	}
}

// Register binds a factory to a platform tag, replacing any previous binding
func (r *Registry) Register(platform PlatformCode, factory AdapterFactory) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[platform] = factory
	return r
}

// Supports returns true if an adapter is registered for platform
func (r *Registry) Supports(platform PlatformCode) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[platform]
	return ok
}

// Adapter constructs the adapter for platform bound to creds.
// Returns *UnsupportedPlatformError when no factory is registered.
func (r *Registry) Adapter(platform PlatformCode, creds Credentials) (PlatformAdapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[platform]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: platform}
	}
	return factory(creds)
}

// Platforms returns the registered platform tags in sorted order
func (r *Registry) Platforms() []PlatformCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PlatformCode, 0, len(r.factories))
	for code := range r.factories {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
