package state

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-reactive/internal/tree"
)

// node is the storage behind a root key: a *recordNode or a *listNode.
type node interface {
	rootKey() string
	snapshot() any
	detach()
}

type recordNode struct {
	key      string
	list     *listNode
	id       string
	keys     []string
	fields   map[string]any
	attached bool
}

func newRecordNode(key string, fields map[string]any) *recordNode {
	n := &recordNode{
		key:      key,
		fields:   make(map[string]any, len(fields)),
		attached: true,
	}
	n.replace(fields)
	return n
}

func (n *recordNode) rootKey() string { return n.key }

func (n *recordNode) path() string {
	if n.list != nil {
		return fmt.Sprintf("%s[%s]", n.key, n.id)
	}
	return n.key
}

func (n *recordNode) snapshot() any {
	return n.toMap()
}

func (n *recordNode) toMap() map[string]any {
	out := make(map[string]any, len(n.fields))
	for key, value := range n.fields {
		out[key] = tree.Clone(value)
	}
	return out
}

func (n *recordNode) detach() {
	n.attached = false
}

// replace swaps every field keeping the node identity. fields must already
// be normalized.
func (n *recordNode) replace(fields map[string]any) {
	n.fields = make(map[string]any, len(fields))
	n.keys = sortedKeys(fields)
	for _, key := range n.keys {
		n.fields[key] = fields[key]
	}
}

func (n *recordNode) set(field string, value any) {
	if _, exists := n.fields[field]; !exists {
		n.keys = append(n.keys, field)
	}
	n.fields[field] = value
}

func (n *recordNode) remove(field string) {
	delete(n.fields, field)
	for i, key := range n.keys {
		if key == field {
			n.keys = append(n.keys[:i:i], n.keys[i+1:]...)
			return
		}
	}
}

type listNode struct {
	key      string
	order    []string
	items    map[string]*recordNode
	attached bool
}

func newListNode(key string) *listNode {
	return &listNode{
		key:      key,
		items:    map[string]*recordNode{},
		attached: true,
	}
}

func (n *listNode) rootKey() string { return n.key }

func (n *listNode) snapshot() any {
	out := make([]any, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.items[id].toMap())
	}
	return out
}

func (n *listNode) detach() {
	n.attached = false
	for _, item := range n.items {
		item.attached = false
	}
}

func (n *listNode) add(id string, fields map[string]any) *recordNode {
	item := newRecordNode(n.key, fields)
	item.list = n
	item.id = id
	n.items[id] = item
	n.order = append(n.order, id)
	return item
}

func (n *listNode) remove(id string) *recordNode {
	item, ok := n.items[id]
	if !ok {
		return nil
	}
	delete(n.items, id)
	for i, key := range n.order {
		if key == id {
			n.order = append(n.order[:i:i], n.order[i+1:]...)
			break
		}
	}
	item.attached = false
	return item
}

type rootNode struct {
	keys   []string
	values map[string]node
}

func newRootNode() *rootNode {
	return &rootNode{values: map[string]node{}}
}

func (r *rootNode) set(key string, value node) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *rootNode) remove(key string) node {
	existing, ok := r.values[key]
	if !ok {
		return nil
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
	existing.detach()
	return existing
}

func (r *rootNode) snapshot() map[string]any {
	out := make(map[string]any, len(r.values))
	for key, value := range r.values {
		out[key] = value.snapshot()
	}
	return out
}

// buildNode converts a raw value into a record or a list node for key.
func buildNode(key string, value any) (node, error) {
	normalized, err := tree.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidState, key, err)
	}
	switch typed := normalized.(type) {
	case map[string]any:
		return newRecordNode(key, typed), nil
	case []any:
		list := newListNode(key)
		for i, item := range typed {
			fields, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a mapping, got %T", ErrInvalidState, key, i, item)
			}
			id, err := NormalizeID(fields["id"])
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %w", ErrInvalidState, key, i, err)
			}
			if _, exists := list.items[id]; exists {
				return nil, fmt.Errorf("%w: %s[%s] is duplicated", ErrInvalidState, key, id)
			}
			list.add(id, fields)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a record or a list, got %T", ErrInvalidState, key, normalized)
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
