package service

import (
	"slices"
	"sync"

	"rift/domain"
)

// registryStore implements interfaces.RegistryStore in memory. Append and Snapshot share one
// critical section: appends are serialized in arrival order and a snapshot copies a consistent
// prefix of the list. Nothing is persisted; the list lives as long as the process.
type registryStore struct {
	mu    sync.RWMutex
	items []domain.ServiceDescriptor
}

// NewRegistryStore creates an empty registry.
func NewRegistryStore() *registryStore {
	return &registryStore{items: make([]domain.ServiceDescriptor, 0)}
}

// Append adds d to the end of the list. Identical descriptors are kept as separate entries.
func (s *registryStore) Append(d domain.ServiceDescriptor) error {
	if err := d.Validate(); err != nil {
		return NewValidationError("invalid service descriptor", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, d)
	return nil
}

// Snapshot returns a copy of the list. ServiceDescriptor holds only values, so a slice copy is a deep copy.
func (s *registryStore) Snapshot() []domain.ServiceDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of registered descriptors.
func (s *registryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
