package sources

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is a table of adapters keyed by source id. It is populated at
// startup and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an adapter. Ids must be non-empty and unique.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return fmt.Errorf("%w: adapter is nil", ErrInvalidAdapter)
	}
	id := strings.TrimSpace(a.ID())
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAdapter)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapters == nil {
		r.adapters = make(map[string]Adapter)
	}
	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, id)
	}
	r.adapters[id] = a
	r.order = append(r.order, id)
	return nil
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return a, nil
}

// Resolve looks up each id. Known adapters are returned in the order
// requested with duplicates removed; unknown ids are returned separately.
func (r *Registry) Resolve(ids []string) (found []Adapter, unknown []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := r.adapters[id]; ok {
			found = append(found, a)
		} else {
			unknown = append(unknown, id)
		}
	}
	return found, unknown
}

// ByKind returns the ids of adapters of the given kinds in registration
// order.
func (r *Registry) ByKind(kinds ...Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, id := range r.order {
		kind := r.adapters[id].Kind()
		for _, k := range kinds {
			if kind == k {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// IDs returns every registered id in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len reports the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
