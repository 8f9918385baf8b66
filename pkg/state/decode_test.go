package state_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-reactive/pkg/state"
)

const courseYAML = `
course:
  id: 12
  textvalue: Text
  samplebool: false
sections:
  - id: 1
    title: Intro
  - id: 2
    title: Basics
`

const courseJSON = `{
  "course": {"id": 12, "textvalue": "Text", "samplebool": false},
  "sections": [{"id": 1, "title": "Intro"}, {"id": 2, "title": "Basics"}]
}`

func TestLoadInitialStateFormatsAgree(t *testing.T) {
	fromYAML, _ := newManager(t, nil)
	if err := fromYAML.LoadInitialState([]byte(courseYAML), "yaml"); err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	fromJSON, _ := newManager(t, nil)
	if err := fromJSON.LoadInitialState([]byte(courseJSON), "json"); err != nil {
		t.Fatalf("load json: %v", err)
	}
	if diff := cmp.Diff(fromJSON.State().Map(), fromYAML.State().Map()); diff != "" {
		t.Fatalf("formats disagree (-json +yaml):\n%s", diff)
	}

	course := fromJSON.State().Record("course")
	if course.Get("id") != int64(12) {
		t.Fatalf("expected json numbers to become int64, got %#v", course.Get("id"))
	}
	if fromYAML.State().List("sections").Get(2).String("title") != "Basics" {
		t.Fatalf("expected sections[2] to be loaded")
	}
}

func TestDecodeInitialStateErrors(t *testing.T) {
	cases := map[string]struct {
		data   string
		format string
		want   error
	}{
		"sequence": {data: `[1, 2]`, format: "json", want: state.ErrInvalidState},
		"broken":   {data: `course: [`, format: "yaml", want: state.ErrInvalidState},
		"empty":    {data: ``, format: "json", want: state.ErrInvalidState},
	}
	for name, tc := range cases {
		if _, err := state.DecodeInitialState([]byte(tc.data), tc.format); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
	if _, err := state.DecodeInitialState([]byte(courseJSON), "toml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestProcessUpdatesData(t *testing.T) {
	m, rec := newManager(t, courseState())
	data := `
- name: sections
  action: create
  fields:
    id: 3
    title: Advanced
- name: course
  action: update
  fields:
    textvalue: From server
`
	if err := m.ProcessUpdatesData([]byte(data), "yml"); err != nil {
		t.Fatalf("process updates data: %v", err)
	}
	assertNames(t, rec, []string{
		"sections:created", "sections[3]:created",
		"course:updated", "course.textvalue:updated",
	})
	if got := m.State().List("sections").Get(3).Get("id"); got != int64(3) {
		t.Fatalf("expected id int64(3), got %#v", got)
	}

	err := m.ProcessUpdatesData([]byte(`{"name": "course"}`), "json")
	if !errors.Is(err, state.ErrInvalidUpdate) || !strings.Contains(err.Error(), "not a sequence") {
		t.Fatalf("expected not a sequence error, got %v", err)
	}
}
