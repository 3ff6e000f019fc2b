package payment

import (
	"fmt"
	"sync"

	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/module/payment/provider"
)

// Registry manages the configured payment providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]provider.Provider)}
}

// Register registers a provider under its name.
func (r *Registry) Register(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, name)
	}
	return p, nil
}

// GetByMethod returns the provider serving the given payment method.
func (r *Registry) GetByMethod(method order.PaymentMethod) (provider.Provider, error) {
	switch method {
	case order.PaymentMethodEsewa:
		return r.Get("esewa")
	case order.PaymentMethodKhalti:
		return r.Get("khalti")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}
