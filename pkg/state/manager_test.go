package state_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-reactive/pkg/state"
)

type recorder struct {
	events []state.Event
}

func (r *recorder) dispatch(event state.Event, _ state.Target) {
	r.events = append(r.events, event)
}

func (r *recorder) names() []string {
	names := make([]string, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.Name)
	}
	return names
}

func (r *recorder) reset() {
	r.events = nil
}

func newManager(t *testing.T, initial map[string]any) (*state.Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := state.New(rec.dispatch, nil)
	if initial != nil {
		if err := m.SetInitialState(initial); err != nil {
			t.Fatalf("set initial state: %v", err)
		}
	}
	rec.reset()
	return m, rec
}

// mutate runs fn inside one unlocked window.
func mutate(t *testing.T, m *state.Manager, fn func(s *state.State) error) {
	t.Helper()
	m.SetLocked(false)
	err := fn(m.State())
	m.SetLocked(true)
	if err != nil {
		t.Fatalf("mutation failed: %v", err)
	}
}

func assertNames(t *testing.T, rec *recorder, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, rec.names()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestSetInitialStateEmitsLoaded(t *testing.T) {
	rec := &recorder{}
	m := state.New(rec.dispatch, nil)

	if !m.Locked() {
		t.Fatalf("expected new manager to be locked")
	}
	err := m.SetInitialState(map[string]any{
		"sample":  map[string]any{"name": "other", "list": []any{"yi", "er", "san"}},
		"samples": []any{map[string]any{"id": "oid1", "name": "some"}},
	})
	if err != nil {
		t.Fatalf("set initial state: %v", err)
	}

	assertNames(t, rec, []string{state.LoadedEvent})
	event := rec.events[0]
	if event.Kind != state.KindLoaded || event.Source != m.ID() || event.Transaction == "" {
		t.Fatalf("unexpected loaded event: %+v", event)
	}
	if !event.State.IsReadOnly() {
		t.Fatalf("expected read-only state in payload")
	}
	if got := event.State.Record("sample").String("name"); got != "other" {
		t.Fatalf("expected sample.name other, got %q", got)
	}
	if got := event.State.List("samples").Get("oid1").String("name"); got != "some" {
		t.Fatalf("expected samples[oid1].name some, got %q", got)
	}

	if err := m.SetInitialState(map[string]any{"other": map[string]any{}}); !errors.Is(err, state.ErrStateAlreadySet) {
		t.Fatalf("expected ErrStateAlreadySet, got %v", err)
	}
	if m.State().Has("other") {
		t.Fatalf("second initial state must not be installed")
	}
}

func TestSetInitialStateRejectsInvalidShapes(t *testing.T) {
	cases := map[string]map[string]any{
		"nil tree":           nil,
		"primitive value":    {"value": "nope"},
		"numeric value":      {"value": 12},
		"list without id":    {"list": []any{map[string]any{"id": 1}, map[string]any{"value": "noid"}}},
		"list of primitives": {"list": []any{1, 2, 3}},
		"duplicated id":      {"list": []any{map[string]any{"id": 1}, map[string]any{"id": "1"}}},
		"unsupported field":  {"record": map[string]any{"fn": func() {}}},
	}
	for name, initial := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			m := state.New(rec.dispatch, nil)
			err := m.SetInitialState(initial)
			if !errors.Is(err, state.ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState, got %v", err)
			}
			if m.Loaded() || len(rec.events) != 0 {
				t.Fatalf("failed initial state must not install anything")
			}
			if err := m.SetInitialState(map[string]any{"ok": map[string]any{"value": 1}}); err != nil {
				t.Fatalf("expected a valid state to be accepted afterwards, got %v", err)
			}
		})
	}
}

func TestWritesRequireUnlock(t *testing.T) {
	m, rec := newManager(t, map[string]any{
		"sample":  map[string]any{"value": "OK"},
		"samples": []any{map[string]any{"id": 1, "value": "first"}},
	})
	s := m.State()

	checks := map[string]func() error{
		"record set":    func() error { return s.Record("sample").Set("value", "changed") },
		"record delete": func() error { return s.Record("sample").Delete("value") },
		"root set":      func() error { return s.Set("other", map[string]any{}) },
		"root delete":   func() error { return s.Delete("sample") },
		"list add":      func() error { return s.List("samples").Add(map[string]any{"id": 2}) },
		"list delete":   func() error { return s.List("samples").Delete(1) },
	}
	for name, check := range checks {
		if err := check(); !errors.Is(err, state.ErrLocked) {
			t.Fatalf("%s: expected ErrLocked, got %v", name, err)
		}
	}
	if len(m.Pending()) != 0 {
		t.Fatalf("locked writes must not enter the queue")
	}
	m.SetLocked(false)
	m.SetLocked(true)
	if len(rec.events) != 0 {
		t.Fatalf("expected no events, got %v", rec.names())
	}
	if got := s.Record("sample").Get("value"); got != "OK" {
		t.Fatalf("expected value untouched, got %v", got)
	}
}

func TestWritesBeforeInitialStateFail(t *testing.T) {
	m, _ := newManager(t, nil)
	m.SetLocked(false)
	defer m.SetLocked(true)
	if err := m.State().Set("sample", map[string]any{}); !errors.Is(err, state.ErrStateNotLoaded) {
		t.Fatalf("expected ErrStateNotLoaded, got %v", err)
	}
}

func TestRootKeyEvents(t *testing.T) {
	initial := func() map[string]any {
		return map[string]any{
			"sample":  map[string]any{"name": "other"},
			"samples": []any{map[string]any{"id": "oid1", "name": "some"}, map[string]any{"id": "oid2", "name": "other"}},
		}
	}
	cases := []struct {
		name   string
		mutate func(s *state.State) error
		want   []string
	}{
		{
			name:   "create record",
			mutate: func(s *state.State) error { return s.Set("newthing", map[string]any{"name": "myname"}) },
			want:   []string{"state.newthing:created"},
		},
		{
			name:   "update record",
			mutate: func(s *state.State) error { return s.Set("sample", map[string]any{"name": "anewname"}) },
			want:   []string{"state.sample:updated"},
		},
		{
			name:   "delete record",
			mutate: func(s *state.State) error { return s.Delete("sample") },
			want:   []string{"state.sample:deleted"},
		},
		{
			name: "create list",
			mutate: func(s *state.State) error {
				return s.Set("newthing2", []any{map[string]any{"id": 1}, map[string]any{"id": 2}})
			},
			want: []string{"state.newthing2:created", "newthing2[1]:created", "newthing2[2]:created"},
		},
		{
			name: "replace list",
			mutate: func(s *state.State) error {
				return s.Set("samples", []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}})
			},
			want: []string{"state.samples:updated", "samples[1]:created", "samples[2]:created", "samples[3]:created"},
		},
		{
			name:   "delete list",
			mutate: func(s *state.State) error { return s.Delete("samples") },
			want:   []string{"state.samples:deleted"},
		},
		{
			name:   "same record",
			mutate: func(s *state.State) error { return s.Set("sample", map[string]any{"name": "other"}) },
			want:   []string{},
		},
		{
			name:   "delete missing key",
			mutate: func(s *state.State) error { return s.Delete("missing") },
			want:   []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, rec := newManager(t, initial())
			mutate(t, m, tc.mutate)
			assertNames(t, rec, tc.want)
		})
	}
}

func TestRecordFieldEvents(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *state.Record) error
		want   []string
	}{
		{
			name:   "add field",
			mutate: func(r *state.Record) error { return r.Set("newthing", "newvalue") },
			want:   []string{"propevents:updated", "propevents.newthing:created"},
		},
		{
			name:   "update field",
			mutate: func(r *state.Record) error { return r.Set("name", "newname") },
			want:   []string{"propevents:updated", "propevents.name:updated"},
		},
		{
			name:   "delete field",
			mutate: func(r *state.Record) error { return r.Delete("name") },
			want:   []string{"propevents:updated", "propevents.name:deleted"},
		},
		{
			name:   "add array",
			mutate: func(r *state.Record) error { return r.Set("newthing2", []string{"a", "b"}) },
			want:   []string{"propevents:updated", "propevents.newthing2:created"},
		},
		{
			name:   "update array",
			mutate: func(r *state.Record) error { return r.Set("arr", []any{"uno", "dos"}) },
			want:   []string{"propevents:updated", "propevents.arr:updated"},
		},
		{
			name:   "delete array",
			mutate: func(r *state.Record) error { return r.Delete("arr") },
			want:   []string{"propevents:updated", "propevents.arr:deleted"},
		},
		{
			name: "several fields share the record event",
			mutate: func(r *state.Record) error {
				if err := r.Set("name", "one"); err != nil {
					return err
				}
				return r.Set("arr", []any{})
			},
			want: []string{"propevents:updated", "propevents.name:updated", "propevents.arr:updated"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, rec := newManager(t, map[string]any{
				"propevents": map[string]any{"name": "name", "arr": []any{"yi", "er"}},
			})
			mutate(t, m, func(s *state.State) error { return tc.mutate(s.Record("propevents")) })
			assertNames(t, rec, tc.want)
		})
	}
}

func TestListEvents(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(l *state.List) error
		want   []string
	}{
		{
			name:   "add element",
			mutate: func(l *state.List) error { return l.Add(map[string]any{"id": "new", "name": "new"}) },
			want:   []string{"mapevents:created", "mapevents[new]:created"},
		},
		{
			name:   "replace element",
			mutate: func(l *state.List) error { return l.Set("id1", map[string]any{"id": "id1", "name": "changed"}) },
			want:   []string{"mapevents:updated", "mapevents[id1]:updated"},
		},
		{
			name:   "delete element",
			mutate: func(l *state.List) error { return l.Delete("id1") },
			want:   []string{"mapevents:deleted", "mapevents[id1]:deleted"},
		},
		{
			name:   "add attribute",
			mutate: func(l *state.List) error { return l.Get("id1").Set("newthing", 1) },
			want: []string{
				"mapevents:updated", "mapevents[id1]:updated",
				"mapevents.newthing:created", "mapevents[id1].newthing:created",
			},
		},
		{
			name:   "update attribute",
			mutate: func(l *state.List) error { return l.Get("id1").Set("name", "other") },
			want: []string{
				"mapevents:updated", "mapevents[id1]:updated",
				"mapevents.name:updated", "mapevents[id1].name:updated",
			},
		},
		{
			name:   "delete attribute",
			mutate: func(l *state.List) error { return l.Get("id1").Delete("name") },
			want: []string{
				"mapevents:updated", "mapevents[id1]:updated",
				"mapevents.name:deleted", "mapevents[id1].name:deleted",
			},
		},
		{
			name: "two elements keep their own list event",
			mutate: func(l *state.List) error {
				if err := l.Get("id1").Set("name", "a"); err != nil {
					return err
				}
				return l.Get("id2").Set("name", "b")
			},
			want: []string{
				"mapevents:updated", "mapevents[id1]:updated",
				"mapevents.name:updated", "mapevents[id1].name:updated",
				"mapevents:updated", "mapevents[id2]:updated",
				"mapevents.name:updated", "mapevents[id2].name:updated",
			},
		},
		{
			name:   "add identical element",
			mutate: func(l *state.List) error { return l.Add(map[string]any{"id": "id1", "name": "name1"}) },
			want:   []string{},
		},
		{
			name:   "delete missing element",
			mutate: func(l *state.List) error { return l.Delete("missing") },
			want:   []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, rec := newManager(t, map[string]any{
				"mapevents": []any{
					map[string]any{"id": "id1", "name": "name1"},
					map[string]any{"id": "id2", "name": "name2"},
				},
			})
			mutate(t, m, func(s *state.State) error { return tc.mutate(s.List("mapevents")) })
			assertNames(t, rec, tc.want)
		})
	}
}

func TestCyclicValuesAreRejected(t *testing.T) {
	m, rec := newManager(t, map[string]any{
		"course":   map[string]any{"title": "Loop"},
		"sections": []any{map[string]any{"id": 1}},
	})
	loop := map[string]any{"name": "loop"}
	loop["self"] = loop
	items := []any{nil}
	items[0] = items

	m.SetLocked(false)
	writes := map[string]struct {
		write func() error
		want  error
	}{
		"record set":   {write: func() error { return m.State().Record("course").Set("loop", loop) }, want: state.ErrUnsupportedValue},
		"record merge": {write: func() error { return m.State().Record("course").Merge(map[string]any{"ok": 1, "items": items}) }, want: state.ErrUnsupportedValue},
		"list add":     {write: func() error { return m.State().List("sections").Add(map[string]any{"id": 2, "loop": loop}) }, want: state.ErrUnsupportedValue},
		"root set":     {write: func() error { return m.State().Set("looped", loop) }, want: state.ErrInvalidState},
	}
	for name, tc := range writes {
		err := tc.write()
		if !errors.Is(err, tc.want) || !strings.Contains(err.Error(), "cyclic value") {
			t.Fatalf("%s: expected %v for a cyclic value, got %v", name, tc.want, err)
		}
	}
	m.SetLocked(true)
	if len(rec.events) != 0 {
		t.Fatalf("rejected writes emitted %v", rec.names())
	}
}

func TestSameValueEmitsNothing(t *testing.T) {
	values := map[string]any{
		"string":      "sample",
		"true":        true,
		"nil":         nil,
		"false":       false,
		"number":      123,
		"numbers":     []any{1, 2, 3},
		"strings":     []any{"hi", "there"},
		"mixed":       []any{true, nil, "here"},
		"object":      map[string]any{"firstname": "John", "lastname": "Doe"},
		"bool object": map[string]any{"some": true, "other": false},
		"null object": map[string]any{"some": nil, "other": 12},
	}
	for name, value := range values {
		t.Run(name, func(t *testing.T) {
			m, rec := newManager(t, map[string]any{"samevalue": map[string]any{"value": value}})
			mutate(t, m, func(s *state.State) error { return s.Record("samevalue").Set("value", value) })
			assertNames(t, rec, []string{})
		})
	}
}

func TestDifferentValueEmitsEvents(t *testing.T) {
	cases := map[string][2]any{
		"string":  {"sample", "something"},
		"bool":    {true, false},
		"nil":     {nil, "hi!"},
		"type":    {false, 23},
		"number":  {123, 124},
		"numbers": {[]any{1, 2, 3}, []any{1, 2, 4}},
		"strings": {[]any{"hi", "there"}, []any{"hi", "me"}},
		"mixed":   {[]any{true, nil, "here"}, []any{true, 12, "here"}},
		"object":  {map[string]any{"some": true}, map[string]any{"some": false}},
	}
	for name, pair := range cases {
		t.Run(name, func(t *testing.T) {
			m, rec := newManager(t, map[string]any{"diffvalue": map[string]any{"value": pair[0]}})
			mutate(t, m, func(s *state.State) error { return s.Record("diffvalue").Set("value", pair[1]) })
			assertNames(t, rec, []string{"diffvalue:updated", "diffvalue.value:updated"})
		})
	}
}

func TestEventPayload(t *testing.T) {
	m, rec := newManager(t, map[string]any{
		"tocheck": map[string]any{"value": "OK"},
		"samples": []any{map[string]any{"id": 4, "value": "second"}},
	})
	mutate(t, m, func(s *state.State) error {
		if err := s.Record("tocheck").Set("value", "Perfect"); err != nil {
			return err
		}
		return s.List("samples").Get(4).Set("value", "changed")
	})

	if len(rec.events) == 0 {
		t.Fatalf("expected events")
	}
	transaction := rec.events[0].Transaction
	for _, event := range rec.events {
		if event.Transaction != transaction {
			t.Fatalf("expected one transaction per flush, got %q and %q", transaction, event.Transaction)
		}
		if event.Source != m.ID() {
			t.Fatalf("expected source %q, got %q", m.ID(), event.Source)
		}
		if !event.State.IsReadOnly() || !event.Element.IsReadOnly() {
			t.Fatalf("expected read-only payload for %s", event.Name)
		}
	}

	first := rec.events[0]
	record, ok := first.Record()
	if !ok || first.Path != "tocheck" || first.Kind != state.KindUpdated {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if record.String("value") != "Perfect" {
		t.Fatalf("expected element value Perfect, got %v", record.Get("value"))
	}
	last := rec.events[len(rec.events)-1]
	element, ok := last.Record()
	if !ok || last.Name != "samples[4].value:updated" || element.Path() != "samples[4]" {
		t.Fatalf("unexpected last event: %+v", last)
	}

	m.SetLocked(false)
	defer m.SetLocked(true)
	if err := element.Set("value", "nope"); !errors.Is(err, state.ErrReadOnlyView) {
		t.Fatalf("expected ErrReadOnlyView while unlocked, got %v", err)
	}
	if err := first.State.Delete("tocheck"); !errors.Is(err, state.ErrReadOnlyView) {
		t.Fatalf("expected ErrReadOnlyView on root, got %v", err)
	}
}

func TestReadOnlyViewsPropagate(t *testing.T) {
	m, _ := newManager(t, map[string]any{
		"samples": []any{map[string]any{"id": 1, "value": "first"}},
	})
	m.SetLocked(false)
	defer m.SetLocked(true)

	readOnly := m.State().ReadOnly()
	list := readOnly.List("samples")
	if !list.IsReadOnly() || !list.Get(1).IsReadOnly() || !list.Records()[0].IsReadOnly() {
		t.Fatalf("expected views reached through a read-only root to be read-only")
	}
	if err := list.Add(map[string]any{"id": 2}); !errors.Is(err, state.ErrReadOnlyView) {
		t.Fatalf("expected ErrReadOnlyView, got %v", err)
	}
	if err := list.Get(1).Set("value", "x"); !errors.Is(err, state.ErrReadOnlyView) {
		t.Fatalf("expected ErrReadOnlyView, got %v", err)
	}
	if len(m.Pending()) != 0 {
		t.Fatalf("rejected writes must not enter the queue")
	}
}

func TestListIDValidation(t *testing.T) {
	m, rec := newManager(t, map[string]any{
		"samples": []any{map[string]any{"id": 1, "value": "first"}},
	})
	list := m.State().List("samples")

	m.SetLocked(false)
	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{name: "set different id", run: func() error { return list.Set(2, map[string]any{"id": 3}) }, want: state.ErrIDMismatch},
		{name: "set without id", run: func() error { return list.Set(2, map[string]any{"value": "x"}) }, want: state.ErrMissingID},
		{name: "set nil key", run: func() error { return list.Set(nil, map[string]any{"id": 2}) }, want: state.ErrMissingID},
		{name: "add without id", run: func() error { return list.Add(map[string]any{"value": "x"}) }, want: state.ErrMissingID},
		{name: "add nil id", run: func() error { return list.Add(map[string]any{"id": nil}) }, want: state.ErrMissingID},
		{name: "add primitive", run: func() error { return list.Add("nope") }, want: state.ErrUnsupportedValue},
		{name: "change element id", run: func() error { return list.Get(1).Set("id", 9) }, want: state.ErrIDMismatch},
		{name: "delete element id", run: func() error { return list.Get(1).Delete("id") }, want: state.ErrMissingID},
	}
	for _, tc := range cases {
		if err := tc.run(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	m.SetLocked(true)

	if len(rec.events) != 0 {
		t.Fatalf("expected no events, got %v", rec.names())
	}
	if diff := cmp.Diff([]map[string]any{{"id": 1, "value": "first"}}, list.Slice()); diff != "" {
		t.Fatalf("list changed (-want +got):\n%s", diff)
	}
}

func TestListSetAndAddSucceed(t *testing.T) {
	m, _ := newManager(t, map[string]any{
		"samples": []any{map[string]any{"id": 1, "value": "first"}},
	})
	mutate(t, m, func(s *state.State) error {
		list := s.List("samples")
		if err := list.Set(2, map[string]any{"id": "2", "value": "second"}); err != nil {
			return err
		}
		return list.Add(map[string]any{"id": 3, "value": "third"})
	})

	list := m.State().List("samples")
	if diff := cmp.Diff([]string{"1", "2", "3"}, list.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	if list.Get("3").String("value") != "third" || list.Get(2.0).String("value") != "second" {
		t.Fatalf("numeric and string ids must address the same element")
	}
	if list.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", list.Len())
	}
}

func TestReadsReturnCopies(t *testing.T) {
	m, rec := newManager(t, map[string]any{
		"course": map[string]any{"myformat": map[string]any{"colors": []any{"red"}}},
	})
	m.SetLocked(false)
	format := m.State().Record("course").Get("myformat").(map[string]any)
	format["colors"].([]any)[0] = "blue"
	m.SetLocked(true)

	if len(rec.events) != 0 {
		t.Fatalf("mutating a copy must not emit events")
	}
	got := m.State().Record("course").Get("myformat").(map[string]any)["colors"].([]any)[0]
	if got != "red" {
		t.Fatalf("expected stored value untouched, got %v", got)
	}
}

func TestDetachedViewsRejectWrites(t *testing.T) {
	m, _ := newManager(t, map[string]any{
		"sample":  map[string]any{"value": "OK"},
		"samples": []any{map[string]any{"id": 1}},
	})
	record := m.State().Record("sample")
	element := m.State().List("samples").Get(1)

	mutate(t, m, func(s *state.State) error {
		if err := s.Delete("sample"); err != nil {
			return err
		}
		return s.List("samples").Delete(1)
	})

	m.SetLocked(false)
	defer m.SetLocked(true)
	if err := record.Set("value", "x"); !errors.Is(err, state.ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if err := element.Set("value", "x"); !errors.Is(err, state.ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if !record.Detached() || record.String("value") != "OK" {
		t.Fatalf("detached records keep their last content")
	}
}

func TestNestedFlushFromListener(t *testing.T) {
	var m *state.Manager
	var names []string
	m = state.New(func(event state.Event, _ state.Target) {
		names = append(names, event.Name)
		if event.Name == "tocheck.value:updated" {
			m.SetLocked(false)
			_ = m.State().Record("other").Set("value", "nested")
			m.SetLocked(true)
		}
	}, nil)
	if err := m.SetInitialState(map[string]any{
		"tocheck": map[string]any{"value": "OK"},
		"other":   map[string]any{"value": "OK"},
	}); err != nil {
		t.Fatalf("set initial state: %v", err)
	}
	names = nil

	mutate(t, m, func(s *state.State) error { return s.Record("tocheck").Set("value", "changed") })

	want := []string{"tocheck:updated", "tocheck.value:updated", "other:updated", "other.value:updated"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestDispatchToTarget(t *testing.T) {
	target := state.NewEventTarget()
	m := state.New(state.DispatchTo("custom_changed"), target)

	var received []string
	remove := target.AddListener("custom_changed", func(name string, event state.Event) {
		received = append(received, name+" "+event.Name)
	})
	if err := m.SetInitialState(map[string]any{"a": map[string]any{}}); err != nil {
		t.Fatalf("set initial state: %v", err)
	}
	remove()
	mutate(t, m, func(s *state.State) error { return s.Record("a").Set("b", 1) })

	if diff := cmp.Diff([]string{"custom_changed state:loaded"}, received); diff != "" {
		t.Fatalf("unexpected deliveries (-want +got):\n%s", diff)
	}
	if len(target.Names()) != 0 {
		t.Fatalf("expected no listeners left, got %v", target.Names())
	}
}

func TestPendingChangesCarryPathSegments(t *testing.T) {
	m, _ := newManager(t, map[string]any{
		"samples": []any{map[string]any{"id": "a", "value": 1}},
	})
	m.SetLocked(false)
	if err := m.State().List("samples").Get("a").Set("value", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	pending := m.Pending()
	m.SetLocked(true)

	type segments struct{ Name, Root, ID, Field string }
	got := make([]segments, 0, len(pending))
	for _, change := range pending {
		got = append(got, segments{change.Name, change.Root, change.ID, change.Field})
	}
	want := []segments{
		{"samples:updated", "samples", "a", ""},
		{"samples[a]:updated", "samples", "a", ""},
		{"samples.value:updated", "samples", "a", "value"},
		{"samples[a].value:updated", "samples", "a", "value"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected pending changes (-want +got):\n%s", diff)
	}
	if m.Pending() != nil {
		t.Fatalf("expected the queue to be drained after relock")
	}
}

func TestListAllIteratesInInsertionOrder(t *testing.T) {
	m, _ := newManager(t, map[string]any{
		"samples": []any{
			map[string]any{"id": "b"},
			map[string]any{"id": 1},
			map[string]any{"id": "a"},
		},
	})
	var ids []string
	for id, record := range m.State().List("samples").All() {
		if record.Path() != "samples["+id+"]" {
			t.Fatalf("unexpected path %q for %q", record.Path(), id)
		}
		ids = append(ids, id)
		if id == "1" {
			break
		}
	}
	if diff := cmp.Diff([]string{"b", "1"}, ids); diff != "" {
		t.Fatalf("unexpected iteration (-want +got):\n%s", diff)
	}
}
