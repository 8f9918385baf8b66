package state

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-reactive/internal/tree"
)

// Record is a view over a keyed mapping in the state tree, either a root
// value or a list element. Reads return copies of composite values so every
// change has to go through Set or Delete.
type Record struct {
	m        *Manager
	n        *recordNode
	readOnly bool
}

// Path returns the record path, "course" or "samples[4]".
func (r *Record) Path() string {
	if r == nil || r.n == nil {
		return ""
	}
	return r.n.path()
}

// IsReadOnly reports whether the view rejects every write.
func (r *Record) IsReadOnly() bool {
	return r == nil || r.readOnly
}

// ReadOnly returns a read-only view of the same record.
func (r *Record) ReadOnly() *Record {
	if r == nil {
		return nil
	}
	return &Record{m: r.m, n: r.n, readOnly: true}
}

// Detached reports whether the record was removed from the state.
func (r *Record) Detached() bool {
	return r == nil || r.n == nil || !r.n.attached
}

// ID returns the element id for list elements, or the "id" field otherwise.
func (r *Record) ID() any {
	return r.Get("id")
}

// Get returns a copy of field, or nil when it does not exist.
func (r *Record) Get(field string) any {
	value, _ := r.Lookup(field)
	return value
}

// Lookup returns a copy of field and whether it exists.
func (r *Record) Lookup(field string) (any, bool) {
	if r == nil || r.n == nil {
		return nil, false
	}
	value, ok := r.n.fields[field]
	if !ok {
		return nil, false
	}
	return tree.Clone(value), true
}

// Has reports whether field exists.
func (r *Record) Has(field string) bool {
	_, ok := r.Lookup(field)
	return ok
}

// String returns field formatted as a string, or "" when missing.
func (r *Record) String(field string) string {
	value, ok := r.Lookup(field)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Bool returns field when it holds a bool.
func (r *Record) Bool(field string) bool {
	value, _ := r.Lookup(field)
	b, _ := value.(bool)
	return b
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil || r.n == nil {
		return nil
	}
	return append([]string(nil), r.n.keys...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil || r.n == nil {
		return 0
	}
	return len(r.n.fields)
}

// Map returns a deep copy of the record fields.
func (r *Record) Map() map[string]any {
	if r == nil || r.n == nil {
		return nil
	}
	return r.n.toMap()
}

// Snapshot implements Node.
func (r *Record) Snapshot() any {
	return r.Map()
}

// Set writes field. Writing a value equal to the current one is a no-op.
func (r *Record) Set(field string, value any) error {
	if err := r.writable(); err != nil {
		return err
	}
	normalized, err := r.prepare(field, value)
	if err != nil {
		return err
	}
	r.apply(field, normalized)
	return nil
}

// Merge writes every entry of fields in key order. All values are checked
// before the first write so a rejected entry leaves the record unchanged.
func (r *Record) Merge(fields map[string]any) error {
	if err := r.writable(); err != nil {
		return err
	}
	keys := sortedKeys(fields)
	prepared := make([]any, len(keys))
	for i, key := range keys {
		normalized, err := r.prepare(key, fields[key])
		if err != nil {
			return err
		}
		prepared[i] = normalized
	}
	for i, key := range keys {
		r.apply(key, prepared[i])
	}
	return nil
}

func (r *Record) prepare(field string, value any) (any, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("%w: %s: field name must not be empty", ErrUnsupportedValue, r.Path())
	}
	normalized, err := tree.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrUnsupportedValue, r.Path(), field, err)
	}
	if r.n.list != nil && field == "id" {
		id, err := NormalizeID(normalized)
		if err != nil {
			return nil, fmt.Errorf("state: %s.id: %w", r.Path(), err)
		}
		if id != r.n.id {
			return nil, fmt.Errorf("%w: %s cannot change its id to %s", ErrIDMismatch, r.Path(), id)
		}
	}
	return normalized, nil
}

func (r *Record) apply(field string, normalized any) {
	current, exists := r.n.fields[field]
	if exists && tree.Equal(current, normalized) {
		return
	}
	// prepare already matched the id against the element key.
	if exists && r.n.list != nil && field == "id" {
		return
	}
	kind := KindCreated
	if exists {
		kind = KindUpdated
	}
	r.m.recordFieldChange(r.n, field, kind)
	r.n.set(field, normalized)
}

// Delete removes field. Deleting a missing field is a no-op.
func (r *Record) Delete(field string) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.n.fields[field]; !exists {
		return nil
	}
	if r.n.list != nil && field == "id" {
		return fmt.Errorf("%w: %s.id cannot be deleted", ErrMissingID, r.Path())
	}
	r.m.recordFieldChange(r.n, field, KindDeleted)
	r.n.remove(field)
	return nil
}

func (r *Record) writable() error {
	if r == nil || r.n == nil {
		return ErrDetached
	}
	if r.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnlyView, r.Path())
	}
	if err := r.m.checkWritable(); err != nil {
		return err
	}
	if !r.n.attached {
		return fmt.Errorf("%w: %s", ErrDetached, r.Path())
	}
	return nil
}
