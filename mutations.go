package reactive

import (
	"fmt"

	"github.com/goliatone/go-reactive/pkg/state"
)

// Mutation changes the state. It receives the manager locked and is expected
// to unlock it, write, and lock it again so the changes are published.
type Mutation func(m *state.Manager, args ...any) error

// Mutations maps public names to mutations.
type Mutations map[string]Mutation

// MutationProvider exposes a set of mutations, usually built from the
// methods of a struct.
type MutationProvider interface {
	Mutations() Mutations
}

// Mutations implements MutationProvider.
func (m Mutations) Mutations() Mutations {
	return m
}

func validateMutations(mutations Mutations) error {
	for name, fn := range mutations {
		if !state.IsPublicName(name) {
			return fmt.Errorf("%w: %q must start with a letter", ErrInvalidMutationName, name)
		}
		if fn == nil {
			return fmt.Errorf("%w: %q has no function", ErrInvalidMutationName, name)
		}
	}
	return nil
}

// AddMutations merges mutations into the registered set. Nothing is added
// when one entry is invalid.
func (h *Hub) AddMutations(mutations Mutations) error {
	if err := validateMutations(mutations); err != nil {
		return err
	}
	for name, fn := range mutations {
		h.mutations[name] = fn
	}
	return nil
}

// SetMutations replaces every registered mutation with the provider's set.
func (h *Hub) SetMutations(provider MutationProvider) error {
	var mutations Mutations
	if provider != nil {
		mutations = provider.Mutations()
	}
	if err := validateMutations(mutations); err != nil {
		return err
	}
	next := make(Mutations, len(mutations))
	for name, fn := range mutations {
		next[name] = fn
	}
	h.mutations = next
	return nil
}

// HasMutation reports whether name can be dispatched.
func (h *Hub) HasMutation(name string) bool {
	return state.IsPublicName(name) && h.mutations[name] != nil
}
