package chain

import (
	"fmt"

	"token-launchpad/internal/domain"
)

// Registry maps networks to their adapters. Populated once at startup
// and read-only afterwards.
type Registry struct {
	adapters map[domain.Network]Adapter
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Network]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Network()] = a
	}
	return r
}

// Get returns the adapter for a network. Returns ErrUnsupported when
// no adapter is registered for it.
func (r *Registry) Get(network domain.Network) (Adapter, error) {
	a, ok := r.adapters[network]
	if !ok {
		return nil, fmt.Errorf("network %s: %w", network, ErrUnsupported)
	}
	return a, nil
}

// Networks returns the networks with a registered adapter, enabled or not.
func (r *Registry) Networks() []domain.Network {
	list := make([]domain.Network, 0, len(r.adapters))
	for n := range r.adapters {
		list = append(list, n)
	}
	return list
}
