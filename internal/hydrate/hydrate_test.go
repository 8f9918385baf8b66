package hydrate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type courseUpdate struct {
	Name   string         `json:"name"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

func TestDecoderJSONAndYAMLAgree(t *testing.T) {
	decoder := NewDecoder[map[string]any](WithUseNumber[map[string]any]())

	fromJSON, err := decoder.Decode(Context{Name: "course.json", Format: FormatJSON}, loadFixture(t, "course.json"))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	fromYAML, err := decoder.Decode(Context{Name: "course.yaml", Format: FormatYAML}, loadFixture(t, "course.yaml"))
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("json and yaml payloads differ (-json +yaml):\n%s", diff)
	}

	course, ok := fromYAML["course"].(map[string]any)
	if !ok {
		t.Fatalf("expected course mapping, got %T", fromYAML["course"])
	}
	if course["id"] != json.Number("12") {
		t.Fatalf("expected json.Number id, got %#v", course["id"])
	}
}

func TestDecoderHooks(t *testing.T) {
	var seen []string
	decoder := NewDecoder[[]courseUpdate](
		WithPreHook[[]courseUpdate](func(ctx Context, payload any) (any, error) {
			seen = append(seen, "pre:"+string(ctx.Format))
			if _, ok := payload.([]any); !ok {
				return nil, errors.New("not a sequence")
			}
			return payload, nil
		}),
		WithPostHook[[]courseUpdate](func(_ Context, updates *[]courseUpdate) error {
			seen = append(seen, "post")
			for i := range *updates {
				(*updates)[i].Action = strings.ToUpper((*updates)[i].Action)
			}
			return nil
		}),
	)

	updates, err := decoder.Decode(Context{Name: "updates.yaml", Format: FormatYAML}, loadFixture(t, "updates.yaml"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Action != "CREATE" || updates[1].Name != "course" {
		t.Fatalf("unexpected updates: %+v", updates)
	}
	if diff := cmp.Diff([]string{"pre:yaml", "post"}, seen); diff != "" {
		t.Fatalf("unexpected hook order (-want +got):\n%s", diff)
	}

	_, err = decoder.Decode(Context{Name: "course.json", Format: FormatJSON}, loadFixture(t, "course.json"))
	if err == nil || !strings.Contains(err.Error(), "not a sequence") {
		t.Fatalf("expected pre-hook failure, got %v", err)
	}
}

func TestDecoderErrors(t *testing.T) {
	decoder := NewDecoder[map[string]any](WithDisallowUnknownFields[map[string]any]())

	cases := []struct {
		name   string
		ctx    Context
		data   string
		expect string
	}{
		{name: "empty", ctx: Context{Name: "empty", Format: FormatJSON}, data: "  ", expect: "is empty"},
		{name: "bad json", ctx: Context{Name: "bad", Format: FormatJSON}, data: "{", expect: "parse json"},
		{name: "bad yaml", ctx: Context{Name: "bad", Format: FormatYAML}, data: "a: [", expect: "parse yaml"},
		{name: "wrong shape", ctx: Context{Name: "list", Format: FormatJSON}, data: "[1,2]", expect: "decode"},
		{name: "unknown format", ctx: Context{Name: "toml", Format: Format("toml")}, data: "a = 1", expect: "unknown format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decoder.Decode(tc.ctx, []byte(tc.data))
			if err == nil || !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected error containing %q, got %v", tc.expect, err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"json":  FormatJSON,
		".yml":  FormatYAML,
		"YAML":  FormatYAML,
		"":      FormatJSON,
		" json": FormatJSON,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseFormat("toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
