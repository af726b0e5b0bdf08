package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInit_JSONWithServiceAndComponent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Level: "debug", Output: &buf, Service: "restaurant-directory"})

	l := Component("rbac")
	l.Debug().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "restaurant-directory" || line["component"] != "rbac" || line["message"] != "hello" {
		t.Fatalf("unexpected fields: %+v", line)
	}
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "info", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	l := Get()
	l.Info().Msg("x")
	if first.Len() == 0 || second.Len() != 0 {
		t.Fatalf("second Init must be ignored")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "trace",
		"DEBUG":   "debug",
		"warning": "warn",
		"error":   "error",
		"bogus":   "info",
		"":        "info",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
