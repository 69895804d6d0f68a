// Package registry implements the service registry (C8): a simple
// name→service-pointer map used by every other component to locate its
// collaborators, decoupling construction order from use.
package registry

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe name→service map. It does no lifecycle
// management — callers own the registered service objects and are
// responsible for closing/shutting them down.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{services: make(map[string]any)}
}

// Register installs svc under name, replacing any prior entry for that
// name (per spec §4.8: "Registration replaces any prior entry").
func (r *Registry) Register(name string, svc any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = svc
}

// Lookup returns the service registered under name.
func (r *Registry) Lookup(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("registry: service %q: not-found", name)
	}
	return svc, nil
}

// Unregister removes name from the registry, if present. It is a no-op if
// name was never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, name)
}

// Names returns the currently registered service names. The order is
// unspecified.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for n := range r.services {
		names = append(names, n)
	}
	return names
}

// Lookup1 is a generic helper that looks up name and type-asserts it to T,
// returning a not-found-shaped error on either a missing entry or a type
// mismatch.
func Lookup1[T any](r *Registry, name string) (T, error) {
	var zero T
	svc, err := r.Lookup(name)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("registry: service %q: not-found (type mismatch)", name)
	}
	return typed, nil
}
