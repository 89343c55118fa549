package interfaces

import "rift/domain"

// RegistryStore holds the insertion-ordered list of registered service descriptors.
//
//go:generate moq -stub -out mock/registry_store.go -pkg mock . RegistryStore
type RegistryStore interface {
	// Append adds the descriptor to the end of the list.
	// Returns:
	// 1) nil on success;
	// 2) validation_error when a required field is missing (the store is not mutated).
	Append(d domain.ServiceDescriptor) error

	// Snapshot returns a copy of the list in registration order; never nil.
	// A snapshot never observes a partially appended element.
	Snapshot() []domain.ServiceDescriptor
}
