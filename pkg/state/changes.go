package state

import "fmt"

// Change is one entry of the pending update queue. Root is the root key,
// ID the list element id and Field the record field, when they apply.
type Change struct {
	Name  string
	Path  string
	Kind  Kind
	Root  string
	ID    string
	Field string

	target any
}

func newChange(path string, kind Kind, target any) Change {
	change := Change{
		Name:   path + ":" + string(kind),
		Path:   path,
		Kind:   kind,
		target: target,
	}
	switch n := target.(type) {
	case *recordNode:
		change.Root = n.key
		change.ID = n.id
	case *listNode:
		change.Root = n.key
	}
	return change
}

func (c Change) withField(field string) Change {
	c.Field = field
	return c
}

func (c Change) element(m *Manager) Node {
	switch n := c.target.(type) {
	case *recordNode:
		return &Record{m: m, n: n, readOnly: true}
	case *listNode:
		return &List{m: m, n: n, readOnly: true}
	}
	return m.State().ReadOnly()
}

type changeKey struct {
	name   string
	target any
}

// dedupeChanges keeps the first occurrence of every (name, element) pair.
func dedupeChanges(changes []Change) []Change {
	if len(changes) == 0 {
		return nil
	}
	seen := make(map[changeKey]struct{}, len(changes))
	out := make([]Change, 0, len(changes))
	for _, change := range changes {
		key := changeKey{name: change.Name, target: change.target}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, change)
	}
	return out
}

func (m *Manager) queue(changes ...Change) {
	m.pending = append(m.pending, changes...)
}

// recordRootChange queues the change of a root key. A list installed under
// the key also reports every element as created.
func (m *Manager) recordRootChange(key string, kind Kind, target node) {
	m.queue(newChange(RootName+"."+key, kind, target))
	list, ok := target.(*listNode)
	if !ok || kind == KindDeleted {
		return
	}
	for _, id := range list.order {
		item := list.items[id]
		m.queue(newChange(item.path(), KindCreated, item))
	}
}

// recordFieldChange queues the changes of one record field write.
func (m *Manager) recordFieldChange(record *recordNode, field string, kind Kind) {
	if record.list == nil {
		m.queue(
			newChange(record.key, KindUpdated, record),
			newChange(record.key+"."+field, kind, record).withField(field),
		)
		return
	}
	m.queue(
		newChange(record.key, KindUpdated, record),
		newChange(record.path(), KindUpdated, record),
		newChange(record.key+"."+field, kind, record).withField(field),
		newChange(fmt.Sprintf("%s.%s", record.path(), field), kind, record).withField(field),
	)
}

// recordElementChange queues the membership change of a list element.
func (m *Manager) recordElementChange(item *recordNode, kind Kind) {
	m.queue(
		newChange(item.key, kind, item),
		newChange(item.path(), kind, item),
	)
}
