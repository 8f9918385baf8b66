package state

import (
	"fmt"

	"github.com/goliatone/go-reactive/internal/hydrate"
)

// DecodeInitialState parses a JSON or YAML document into a tree accepted by
// SetInitialState. format is "json", "yaml" or "yml".
func DecodeInitialState(data []byte, format string) (map[string]any, error) {
	parsed, err := hydrate.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	decoder := hydrate.NewDecoder(
		hydrate.WithUseNumber[map[string]any](),
		hydrate.WithPreHook[map[string]any](requireMapping),
	)
	tree, err := decoder.Decode(hydrate.Context{Name: "initial state", Format: parsed}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return tree, nil
}

// DecodeUpdates parses a JSON or YAML sequence of update descriptors.
func DecodeUpdates(data []byte, format string) ([]Update, error) {
	parsed, err := hydrate.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	decoder := hydrate.NewDecoder(
		hydrate.WithUseNumber[[]Update](),
		hydrate.WithPreHook[[]Update](requireSequence),
	)
	updates, err := decoder.Decode(hydrate.Context{Name: "updates", Format: parsed}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}
	return updates, nil
}

// LoadInitialState decodes data and installs it with SetInitialState.
func (m *Manager) LoadInitialState(data []byte, format string) error {
	tree, err := DecodeInitialState(data, format)
	if err != nil {
		return err
	}
	return m.SetInitialState(tree)
}

// ProcessUpdatesData decodes data with DecodeUpdates and runs ProcessUpdates.
func (m *Manager) ProcessUpdatesData(data []byte, format string, overrides ...UpdateTypes) error {
	updates, err := DecodeUpdates(data, format)
	if err != nil {
		return err
	}
	return m.ProcessUpdates(updates, overrides...)
}

func requireMapping(_ hydrate.Context, payload any) (any, error) {
	if _, ok := payload.(map[string]any); !ok {
		return nil, fmt.Errorf("initial state must be a mapping, got %T", payload)
	}
	return payload, nil
}

func requireSequence(_ hydrate.Context, payload any) (any, error) {
	if _, ok := payload.([]any); !ok {
		return nil, fmt.Errorf("updates argument is not a sequence, got %T", payload)
	}
	return payload, nil
}
