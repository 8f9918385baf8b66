package state

import (
	"fmt"

	"github.com/goliatone/go-reactive/internal/tree"
)

// State is the root view of the tree. Root values are records or lists.
type State struct {
	m        *Manager
	readOnly bool
}

// Path implements Node.
func (s *State) Path() string {
	return RootName
}

// IsReadOnly reports whether the view rejects every write.
func (s *State) IsReadOnly() bool {
	return s == nil || s.readOnly
}

// ReadOnly returns a read-only view of the whole tree. Records and lists
// reached through it are read-only as well.
func (s *State) ReadOnly() *State {
	if s == nil {
		return nil
	}
	return &State{m: s.m, readOnly: true}
}

// Keys returns the root keys in insertion order.
func (s *State) Keys() []string {
	if s == nil || s.m == nil {
		return nil
	}
	return append([]string(nil), s.m.root.keys...)
}

// Len returns the number of root keys.
func (s *State) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return len(s.m.root.values)
}

// Has reports whether key exists.
func (s *State) Has(key string) bool {
	return s.Get(key) != nil
}

// Get returns the record or list stored under key, or nil.
func (s *State) Get(key string) Node {
	if s == nil || s.m == nil {
		return nil
	}
	switch n := s.m.root.values[key].(type) {
	case *recordNode:
		return &Record{m: s.m, n: n, readOnly: s.readOnly}
	case *listNode:
		return &List{m: s.m, n: n, readOnly: s.readOnly}
	}
	return nil
}

// Record returns the record stored under key, or nil when key is missing or
// holds a list.
func (s *State) Record(key string) *Record {
	record, _ := s.Get(key).(*Record)
	return record
}

// List returns the list stored under key, or nil when key is missing or
// holds a record.
func (s *State) List(key string) *List {
	list, _ := s.Get(key).(*List)
	return list
}

// Snapshot returns a deep copy of the tree: records as map[string]any and
// lists as []any of map[string]any.
func (s *State) Snapshot() any {
	return s.Map()
}

// Map is the typed form of Snapshot.
func (s *State) Map() map[string]any {
	if s == nil || s.m == nil {
		return nil
	}
	return s.m.root.snapshot()
}

// Set stores value under key. Mappings become records and sequences of
// id-bearing mappings become lists. Replacing a list reports every new
// element as created.
func (s *State) Set(key string, value any) error {
	if err := s.writable(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: root key must not be empty", ErrInvalidState)
	}
	if n, ok := value.(Node); ok {
		value = n.Snapshot()
	}
	built, err := buildNode(key, value)
	if err != nil {
		return err
	}
	kind := KindCreated
	if existing, ok := s.m.root.values[key]; ok {
		if sameNodeType(existing, built) && tree.Equal(existing.snapshot(), built.snapshot()) {
			return nil
		}
		kind = KindUpdated
		existing.detach()
	}
	s.m.recordRootChange(key, kind, built)
	s.m.root.set(key, built)
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *State) Delete(key string) error {
	if err := s.writable(); err != nil {
		return err
	}
	existing, ok := s.m.root.values[key]
	if !ok {
		return nil
	}
	s.m.recordRootChange(key, KindDeleted, existing)
	s.m.root.remove(key)
	return nil
}

func (s *State) writable() error {
	if s == nil || s.m == nil {
		return ErrDetached
	}
	if s.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnlyView, RootName)
	}
	return s.m.checkWritable()
}

func sameNodeType(a, b node) bool {
	switch a.(type) {
	case *recordNode:
		_, ok := b.(*recordNode)
		return ok
	case *listNode:
		_, ok := b.(*listNode)
		return ok
	}
	return false
}
