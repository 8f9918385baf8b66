package state

import (
	"fmt"
	"iter"

	"github.com/goliatone/go-reactive/internal/tree"
)

// List is a view over an insertion-ordered collection of records keyed by
// their mandatory "id" field.
type List struct {
	m        *Manager
	n        *listNode
	readOnly bool
}

// Path returns the list key.
func (l *List) Path() string {
	if l == nil || l.n == nil {
		return ""
	}
	return l.n.key
}

// IsReadOnly reports whether the view rejects every write.
func (l *List) IsReadOnly() bool {
	return l == nil || l.readOnly
}

// ReadOnly returns a read-only view of the same list.
func (l *List) ReadOnly() *List {
	if l == nil {
		return nil
	}
	return &List{m: l.m, n: l.n, readOnly: true}
}

// Detached reports whether the list was removed from the state.
func (l *List) Detached() bool {
	return l == nil || l.n == nil || !l.n.attached
}

// Get returns the element with id, or nil when it does not exist.
func (l *List) Get(id any) *Record {
	if l == nil || l.n == nil {
		return nil
	}
	key, err := NormalizeID(id)
	if err != nil {
		return nil
	}
	item, ok := l.n.items[key]
	if !ok {
		return nil
	}
	return &Record{m: l.m, n: item, readOnly: l.readOnly}
}

// Has reports whether an element with id exists.
func (l *List) Has(id any) bool {
	return l.Get(id) != nil
}

// Len returns the number of elements.
func (l *List) Len() int {
	if l == nil || l.n == nil {
		return 0
	}
	return len(l.n.order)
}

// IDs returns the canonical element ids in insertion order.
func (l *List) IDs() []string {
	if l == nil || l.n == nil {
		return nil
	}
	return append([]string(nil), l.n.order...)
}

// Records returns the elements in insertion order.
func (l *List) Records() []*Record {
	if l == nil || l.n == nil {
		return nil
	}
	out := make([]*Record, 0, len(l.n.order))
	for _, id := range l.n.order {
		out = append(out, &Record{m: l.m, n: l.n.items[id], readOnly: l.readOnly})
	}
	return out
}

// All iterates over the elements in insertion order.
func (l *List) All() iter.Seq2[string, *Record] {
	return func(yield func(string, *Record) bool) {
		for _, record := range l.Records() {
			if !yield(record.n.id, record) {
				return
			}
		}
	}
}

// Slice returns a deep copy of the elements in insertion order.
func (l *List) Slice() []map[string]any {
	if l == nil || l.n == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(l.n.order))
	for _, id := range l.n.order {
		out = append(out, l.n.items[id].toMap())
	}
	return out
}

// Snapshot implements Node.
func (l *List) Snapshot() any {
	if l == nil || l.n == nil {
		return nil
	}
	return l.n.snapshot()
}

// Add creates the element keyed by record["id"], or replaces it when it
// already exists.
func (l *List) Add(record any) error {
	if err := l.writable(); err != nil {
		return err
	}
	fields, id, err := l.prepare(record)
	if err != nil {
		return err
	}
	l.put(id, fields)
	return nil
}

// Set stores record under id. record["id"] must match id.
func (l *List) Set(id any, record any) error {
	if err := l.writable(); err != nil {
		return err
	}
	key, err := NormalizeID(id)
	if err != nil {
		return fmt.Errorf("state: %s: %w", l.Path(), err)
	}
	fields, recordID, err := l.prepare(record)
	if err != nil {
		return err
	}
	if recordID != key {
		return fmt.Errorf("%w: %s[%s] got record with id %s", ErrIDMismatch, l.Path(), key, recordID)
	}
	l.put(key, fields)
	return nil
}

// Delete removes the element with id. Deleting a missing element is a no-op.
func (l *List) Delete(id any) error {
	if err := l.writable(); err != nil {
		return err
	}
	key, err := NormalizeID(id)
	if err != nil {
		return fmt.Errorf("state: %s: %w", l.Path(), err)
	}
	item, ok := l.n.items[key]
	if !ok {
		return nil
	}
	l.m.recordElementChange(item, KindDeleted)
	l.n.remove(key)
	return nil
}

func (l *List) prepare(record any) (map[string]any, string, error) {
	if node, ok := record.(Node); ok {
		record = node.Snapshot()
	}
	normalized, err := tree.Normalize(record)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrUnsupportedValue, l.Path(), err)
	}
	fields, ok := normalized.(map[string]any)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s elements must be mappings, got %T", ErrUnsupportedValue, l.Path(), normalized)
	}
	id, err := NormalizeID(fields["id"])
	if err != nil {
		return nil, "", fmt.Errorf("state: %s: %w", l.Path(), err)
	}
	return fields, id, nil
}

func (l *List) put(id string, fields map[string]any) {
	existing, ok := l.n.items[id]
	if !ok {
		item := l.n.add(id, fields)
		l.m.recordElementChange(item, KindCreated)
		return
	}
	if tree.Equal(existing.toMap(), fields) {
		return
	}
	l.m.recordElementChange(existing, KindUpdated)
	existing.replace(fields)
}

func (l *List) writable() error {
	if l == nil || l.n == nil {
		return ErrDetached
	}
	if l.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnlyView, l.Path())
	}
	if err := l.m.checkWritable(); err != nil {
		return err
	}
	if !l.n.attached {
		return fmt.Errorf("%w: %s", ErrDetached, l.Path())
	}
	return nil
}
