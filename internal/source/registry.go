package source

import (
	"fmt"
	"strings"
	"sync"
)

// Factory constructs an adapter. Factories close over their configuration.
type Factory func() Adapter

// ConfigurationError reports a lookup of an adapter name that was never registered.
type ConfigurationError struct {
	Name  string
	Known []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown adapter: %s. Available: %s", e.Name, strings.Join(e.Known, ", "))
}

// Registry maps adapter names to constructors in registration order.
type Registry struct {
	mu        sync.RWMutex
	names     []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named constructor. Names may be registered only once.
// Parameters:
//   - name: adapter key used on the command line and in ids.
//   - factory: constructor for the adapter.
// Returns:
//   - error: non-nil if the name is empty or already registered.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("adapter name is empty")
	}
	if factory == nil {
		return fmt.Errorf("adapter %s: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}
	r.factories[name] = factory
	r.names = append(r.names, name)
	return nil
}

// Names returns registered adapter names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Get constructs the adapter registered under name.
// Parameters:
//   - name: adapter key.
// Returns:
//   - Adapter: freshly constructed adapter.
//   - error: *ConfigurationError when name is unknown.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &ConfigurationError{Name: name, Known: r.Names()}
	}
	return factory(), nil
}
