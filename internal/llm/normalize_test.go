package llm

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNormalize_FencedJSON(t *testing.T) {
	v, err := Normalize("```json\n{\"a\":1}\n```")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"a": json.Number("1")}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func TestNormalize_BareJSON(t *testing.T) {
	v, err := Normalize(`{"a":1}`)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"a": json.Number("1")}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func TestNormalize_NotJSON(t *testing.T) {
	_, err := Normalize("not json")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestNormalize_Empty(t *testing.T) {
	if _, err := Normalize("   "); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestNormalize_TrailingGarbage(t *testing.T) {
	if _, err := Normalize(`{"a":1} and more`); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestNormalize_FenceWithoutLanguageAndArray(t *testing.T) {
	v, err := Normalize("  ```\n[1, 2, 3]\n```  \n")
	if err != nil {
		t.Fatal(err)
	}
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("expected 3 element array, got %#v", v)
	}
}

func TestNormalize_MissingClosingFence(t *testing.T) {
	v, err := Normalize("```json\n{\"ok\":true}")
	if err != nil {
		t.Fatal(err)
	}
	if m, _ := v.(map[string]any); m["ok"] != true {
		t.Errorf("expected ok=true, got %v", v)
	}
}

func TestNormalize_SingleLineFenceIsMalformed(t *testing.T) {
	if _, err := Normalize("```{\"a\":1}```"); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestStripFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"{}", "{}"},
		{"```js\nline1\nline2\n  ```  ", "line1\nline2"},
		{"```json\n{}\n``` trailing", "{}\n``` trailing"},
	}
	for _, c := range cases {
		if got := StripFence(c.in); got != c.want {
			t.Errorf("StripFence(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := Preview("abcdefgh", 3); got != "abc..." {
		t.Errorf("expected abc..., got %q", got)
	}
	if got := Preview("héllo", 2); got != "h..." {
		t.Errorf("expected cut before multibyte rune, got %q", got)
	}
}
