package provider

import (
	"context"
	"fmt"
	"sort"
)

// Verify interface compliance
var (
	_ Adapter = (*SmartThings)(nil)
	_ Adapter = (*GoogleHome)(nil)
)

// Registry maps provider names to adapters. It is built once at startup and
// read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry from adapters; later adapters replace
// earlier ones with the same name
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Lookup returns the adapter registered under name
func (r *Registry) Lookup(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return a, nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refresh performs a refresh-token grant against the named provider
func (r *Registry) Refresh(ctx context.Context, name, refreshToken string) (*TokenResponse, error) {
	a, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return a.Refresh(ctx, refreshToken)
}

// CheckHealth reports per-provider health, keyed by provider name
func (r *Registry) CheckHealth(ctx context.Context) map[string]error {
	results := make(map[string]error, len(r.adapters))
	for name, a := range r.adapters {
		results[name] = a.CheckHealth(ctx)
	}
	return results
}
