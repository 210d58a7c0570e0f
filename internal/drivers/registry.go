package drivers

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownPlatform indicates no driver is registered for the name.
var ErrUnknownPlatform = errors.New("unknown platform")

// Registry maps platform names to drivers. Adding a platform is one
// Register call; nothing else in the deploy flow branches on the name.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Register adds or replaces the driver for a platform name.
func (r *Registry) Register(platform string, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[platform] = d
}

// Get returns the driver for a platform name.
func (r *Registry) Get(platform string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[platform]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return d, nil
}

// Platforms returns registered platform names, sorted.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
