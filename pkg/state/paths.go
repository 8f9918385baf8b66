package state

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes a watchable path and the inferred value type.
type FieldDescriptor struct {
	Path string
	Type string
}

// Paths lists every path events can currently be emitted for, sorted by
// path. Record and list paths report "record" and "list"; field paths report
// the Go type of the stored value.
func (s *State) Paths() []FieldDescriptor {
	if s == nil || s.m == nil {
		return nil
	}
	fields := []FieldDescriptor{{Path: RootName, Type: "state"}}
	for _, key := range s.m.root.keys {
		fields = append(fields, FieldDescriptor{Path: joinPath(RootName, key), Type: nodeType(s.m.root.values[key])})
		switch n := s.m.root.values[key].(type) {
		case *recordNode:
			fields = append(fields, FieldDescriptor{Path: key, Type: "record"})
			fields = append(fields, deriveFieldDescriptors(n, key)...)
		case *listNode:
			fields = append(fields, FieldDescriptor{Path: key, Type: "list"})
			seen := map[string]bool{}
			for _, id := range n.order {
				item := n.items[id]
				fields = append(fields, FieldDescriptor{Path: item.path(), Type: "record"})
				fields = append(fields, deriveFieldDescriptors(item, item.path())...)
				for _, descriptor := range deriveFieldDescriptors(item, key) {
					if seen[descriptor.Path] {
						continue
					}
					seen[descriptor.Path] = true
					fields = append(fields, descriptor)
				}
			}
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Path < fields[j].Path
	})
	return fields
}

// HasPath reports whether path is currently watchable. A trailing ":kind"
// suffix is ignored.
func (s *State) HasPath(path string) bool {
	if idx := strings.LastIndex(path, ":"); idx >= 0 {
		path = path[:idx]
	}
	for _, descriptor := range s.Paths() {
		if descriptor.Path == path {
			return true
		}
	}
	return false
}

func deriveFieldDescriptors(record *recordNode, prefix string) []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(record.keys))
	for _, key := range record.keys {
		fields = append(fields, FieldDescriptor{
			Path: joinPath(prefix, key),
			Type: typeName(record.fields[key]),
		})
	}
	return fields
}

func nodeType(n node) string {
	switch n.(type) {
	case *recordNode:
		return "record"
	case *listNode:
		return "list"
	}
	return "nil"
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
