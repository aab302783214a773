// ABOUTME: Unit tests for the field-level merge rule
// ABOUTME: Verifies present-wins/absent-retains per field, and name/id overwrite

package store

import (
	"encoding/json"
	"testing"
)

func strptr(s string) *string { return &s }

func TestJSONPresent(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want bool
	}{
		{"nil", nil, false},
		{"null literal", json.RawMessage(`null`), false},
		{"empty object", json.RawMessage(`{}`), false},
		{"empty array", json.RawMessage(`[]`), false},
		{"whitespace null", json.RawMessage(" null "), false},
		{"object", json.RawMessage(`{"x":1}`), true},
		{"array", json.RawMessage(`[{"row":1}]`), true},
		{"scalar", json.RawMessage(`42`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jsonPresent(tt.raw); got != tt.want {
				t.Errorf("jsonPresent(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMergeResult_RetainsStoredWhenIncomingAbsent(t *testing.T) {
	existing := &Result{
		ID:       "a",
		Name:     strptr("old name"),
		Category: strptr("HW:LWC"),
		Metadata: json.RawMessage(`{"x":1}`),
		Timing:   json.RawMessage(`[{"clk":10}]`),
	}
	incoming := &Result{
		ID:   "a",
		Name: strptr("new name"),
	}

	merged := mergeResult(existing, incoming)

	if merged.Name == nil || *merged.Name != "new name" {
		t.Errorf("name should always take the incoming value, got %v", merged.Name)
	}
	if merged.Category == nil || *merged.Category != "HW:LWC" {
		t.Errorf("absent category should retain stored value, got %v", merged.Category)
	}
	if string(merged.Metadata) != `{"x":1}` {
		t.Errorf("absent metadata should retain stored value, got %s", merged.Metadata)
	}
	if string(merged.Timing) != `[{"clk":10}]` {
		t.Errorf("absent timing should retain stored value, got %s", merged.Timing)
	}
}

func TestMergeResult_IncomingWinsWhenPresent(t *testing.T) {
	existing := &Result{
		ID:        "a",
		Category:  strptr("old"),
		Metadata:  json.RawMessage(`{"x":1}`),
		Timing:    json.RawMessage(`[{"clk":10}]`),
		Synthesis: json.RawMessage(`{"lut":100}`),
	}
	incoming := &Result{
		ID:        "a",
		Category:  strptr("new"),
		Metadata:  json.RawMessage(`{"x":2}`),
		Timing:    json.RawMessage(`[{"clk":20}]`),
		Synthesis: json.RawMessage(`{"lut":200}`),
	}

	merged := mergeResult(existing, incoming)

	if *merged.Category != "new" {
		t.Errorf("category = %q, want %q", *merged.Category, "new")
	}
	if string(merged.Metadata) != `{"x":2}` {
		t.Errorf("metadata = %s, want incoming value", merged.Metadata)
	}
	if string(merged.Timing) != `[{"clk":20}]` {
		t.Errorf("timing = %s, want incoming value", merged.Timing)
	}
	if string(merged.Synthesis) != `{"lut":200}` {
		t.Errorf("synthesis = %s, want incoming value", merged.Synthesis)
	}
}

func TestMergeResult_NullAndEmptyDoNotClobber(t *testing.T) {
	existing := &Result{
		ID:       "a",
		Metadata: json.RawMessage(`{"x":1}`),
		Timing:   json.RawMessage(`[{"clk":10}]`),
	}
	incoming := &Result{
		ID:       "a",
		Metadata: json.RawMessage(`null`),
		Timing:   json.RawMessage(`{}`),
		Category: strptr(""),
	}

	merged := mergeResult(existing, incoming)

	if string(merged.Metadata) != `{"x":1}` {
		t.Errorf("null metadata clobbered stored value: %s", merged.Metadata)
	}
	if string(merged.Timing) != `[{"clk":10}]` {
		t.Errorf("empty timing clobbered stored value: %s", merged.Timing)
	}
	if merged.Category != nil {
		t.Errorf("empty category should not replace stored nil, got %v", merged.Category)
	}
}

func TestMergeResult_NameClearedWhenIncomingNil(t *testing.T) {
	existing := &Result{ID: "a", Name: strptr("old")}
	incoming := &Result{ID: "a"}

	merged := mergeResult(existing, incoming)

	if merged.Name != nil {
		t.Errorf("name should be overwritten wholesale, got %v", merged.Name)
	}
}
