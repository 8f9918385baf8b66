package state

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-reactive/internal/tree"
	"go.uber.org/zap"
)

// Default update actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Update describes one externally sourced change.
type Update struct {
	Name   string         `json:"name" yaml:"name"`
	Action string         `json:"action" yaml:"action"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// UpdateFunc applies one update. It runs while the manager is unlocked.
type UpdateFunc func(m *Manager, name string, fields map[string]any) error

// UpdateTypes maps action names to update functions.
type UpdateTypes map[string]UpdateFunc

var defaultUpdateTypes = UpdateTypes{
	ActionCreate: defaultCreate,
	ActionUpdate: defaultUpdate,
	ActionDelete: defaultDelete,
}

// AddUpdateTypes registers or overrides update actions. Names must start with
// a letter and functions must not be nil; nothing is registered when one
// entry is invalid.
func (m *Manager) AddUpdateTypes(types UpdateTypes) error {
	for name, fn := range types {
		if !IsPublicName(name) {
			return fmt.Errorf("%w: %q must start with a letter", ErrInvalidUpdateType, name)
		}
		if fn == nil {
			return fmt.Errorf("%w: %q has no function", ErrInvalidUpdateType, name)
		}
	}
	for name, fn := range types {
		m.updateTypes[name] = fn
	}
	return nil
}

// ProcessUpdates validates the whole batch and then applies it inside one
// unlock/relock window, so only the resulting changes are published. The
// lock state found on entry is restored afterwards. overrides take
// precedence over registered update types for this call only.
//
// Validation covers every descriptor before the first write: names and
// fields must be present, field names non-empty and values within the
// supported value set, actions must be known and, for the default
// actions, list updates must reference an existing id (update, delete) or a
// free one (create), taking earlier descriptors of the batch into account.
func (m *Manager) ProcessUpdates(updates []Update, overrides ...UpdateTypes) error {
	if !m.loaded {
		return ErrStateNotLoaded
	}
	actions := m.resolveUpdateTypes(overrides)
	if err := m.validateUpdates(updates, actions); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	wasLocked := m.locked
	m.SetLocked(false)
	defer m.SetLocked(wasLocked)

	for i, update := range updates {
		if err := actions[update.Action].fn(m, update.Name, update.Fields); err != nil {
			m.logger.Warn("state: update failed",
				zap.String("manager", m.id),
				zap.Int("index", i),
				zap.String("name", update.Name),
				zap.String("action", update.Action),
				zap.Error(err),
			)
			return fmt.Errorf("state: update %d (%s %s): %w", i, update.Action, update.Name, err)
		}
	}
	return nil
}

type updateAction struct {
	fn      UpdateFunc
	builtin bool
}

func (m *Manager) resolveUpdateTypes(overrides []UpdateTypes) map[string]updateAction {
	actions := make(map[string]updateAction, len(defaultUpdateTypes)+len(m.updateTypes))
	for name, fn := range defaultUpdateTypes {
		actions[name] = updateAction{fn: fn, builtin: true}
	}
	for name, fn := range m.updateTypes {
		actions[name] = updateAction{fn: fn}
	}
	for _, types := range overrides {
		for name, fn := range types {
			if IsPublicName(name) && fn != nil {
				actions[name] = updateAction{fn: fn}
			}
		}
	}
	return actions
}

type batchTracker struct {
	created map[string]bool
	deleted map[string]bool
}

func (m *Manager) validateUpdates(updates []Update, actions map[string]updateAction) error {
	roots := batchTracker{created: map[string]bool{}, deleted: map[string]bool{}}
	elements := map[string]*batchTracker{}

	for i, update := range updates {
		if update.Name == "" {
			return fmt.Errorf("%w: update %d has no name", ErrInvalidUpdate, i)
		}
		if update.Fields == nil {
			return fmt.Errorf("%w: update %d (%s) has no fields", ErrInvalidUpdate, i, update.Name)
		}
		if err := validateFields(update.Fields); err != nil {
			return fmt.Errorf("%w: update %d (%s): %w", ErrUnsupportedValue, i, update.Name, err)
		}
		action, ok := actions[update.Action]
		if !ok {
			return fmt.Errorf("%w: update %d (%s) action %q", ErrUnknownAction, i, update.Name, update.Action)
		}
		if !action.builtin {
			continue
		}

		existing, rootExists := m.root.values[update.Name]
		rootExists = (rootExists && !roots.deleted[update.Name]) || roots.created[update.Name]

		if list, isList := existing.(*listNode); isList && rootExists {
			id, err := NormalizeID(update.Fields["id"])
			if err != nil {
				return fmt.Errorf("%w: update %d (%s): %w", ErrInvalidUpdate, i, update.Name, err)
			}
			tracker := elements[update.Name]
			if tracker == nil {
				tracker = &batchTracker{created: map[string]bool{}, deleted: map[string]bool{}}
				elements[update.Name] = tracker
			}
			_, present := list.items[id]
			present = (present && !tracker.deleted[id]) || tracker.created[id]
			switch update.Action {
			case ActionCreate:
				if present {
					return fmt.Errorf("%w: update %d: %s[%s]", ErrDuplicateElement, i, update.Name, id)
				}
				tracker.created[id] = true
				delete(tracker.deleted, id)
			case ActionUpdate:
				if !present {
					return fmt.Errorf("%w: update %d: %s[%s]", ErrUnknownElement, i, update.Name, id)
				}
			case ActionDelete:
				if !present {
					return fmt.Errorf("%w: update %d: %s[%s]", ErrUnknownElement, i, update.Name, id)
				}
				tracker.deleted[id] = true
				delete(tracker.created, id)
			}
			continue
		}

		switch update.Action {
		case ActionCreate:
			roots.created[update.Name] = true
			delete(roots.deleted, update.Name)
		case ActionUpdate:
			if !rootExists {
				return fmt.Errorf("%w: update %d: %s", ErrUnknownElement, i, update.Name)
			}
		case ActionDelete:
			if !rootExists {
				return fmt.Errorf("%w: update %d: %s", ErrUnknownElement, i, update.Name)
			}
			roots.deleted[update.Name] = true
			delete(roots.created, update.Name)
		}
	}
	return nil
}

func validateFields(fields map[string]any) error {
	for field := range fields {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("field name must not be empty")
		}
	}
	_, err := tree.Normalize(fields)
	return err
}

func defaultCreate(m *Manager, name string, fields map[string]any) error {
	state := m.State()
	if list := state.List(name); list != nil {
		return list.Add(fields)
	}
	return state.Set(name, fields)
}

func defaultUpdate(m *Manager, name string, fields map[string]any) error {
	state := m.State()
	if list := state.List(name); list != nil {
		element := list.Get(fields["id"])
		if element == nil {
			return fmt.Errorf("%w: %s[%v]", ErrUnknownElement, name, fields["id"])
		}
		return element.Merge(fields)
	}
	record := state.Record(name)
	if record == nil {
		return fmt.Errorf("%w: %s", ErrUnknownElement, name)
	}
	return record.Merge(fields)
}

func defaultDelete(m *Manager, name string, fields map[string]any) error {
	state := m.State()
	if list := state.List(name); list != nil {
		return list.Delete(fields["id"])
	}
	return state.Delete(name)
}

// IsPublicName reports whether name starts with an ASCII letter. Names
// starting with anything else are private and never dispatchable.
func IsPublicName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
