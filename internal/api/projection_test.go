// ABOUTME: Unit tests for the retrieve presentation transforms
// ABOUTME: Covers dotted-path projection and nested JSON flattening

package api

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/cergworks/cergdb/internal/store"
)

func testResult(t *testing.T, id string, metadata string) *store.Result {
	t.Helper()
	r := &store.Result{ID: id}
	if metadata != "" {
		r.Metadata = json.RawMessage(metadata)
	}
	return r
}

func TestLookupPath(t *testing.T) {
	doc := map[string]any{
		"id": "run-1",
		"metadata": map[string]any{
			"lut":    float64(3),
			"nested": map[string]any{"deep": true},
		},
	}

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{path: "id", want: "run-1", wantOK: true},
		{path: "metadata.lut", want: float64(3), wantOK: true},
		{path: "metadata.nested.deep", want: true, wantOK: true},
		{path: "metadata.missing", wantOK: false},
		{path: "id.not.an.object", wantOK: false},
		{path: "absent", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := lookupPath(doc, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("lookupPath(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lookupPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFlattenDocument(t *testing.T) {
	doc := map[string]any{
		"id": "run-1",
		"metadata": map[string]any{
			"lut":    float64(3),
			"nested": map[string]any{"deep": true},
		},
		"timing": map[string]any{
			"rows": []any{"a", "b"},
		},
	}

	got := flattenDocument(doc)
	want := map[string]any{
		"id":                   "run-1",
		"metadata.lut":         float64(3),
		"metadata.nested.deep": true,
		"timing.rows":          []any{"a", "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("flattenDocument() = %v, want %v", got, want)
	}
}

func TestTransformResults_PassThrough(t *testing.T) {
	results := []*store.Result{testResult(t, "run-1", `{"lut":3}`)}

	out, err := transformResults(results, nil, false)
	if err != nil {
		t.Fatalf("transformResults() error = %v", err)
	}
	if !reflect.DeepEqual(out, any(results)) {
		t.Error("transformResults() with no options must return the input unchanged")
	}
}

func TestTransformResults_NilInput(t *testing.T) {
	out, err := transformResults(nil, nil, false)
	if err != nil {
		t.Fatalf("transformResults() error = %v", err)
	}

	results, ok := out.([]*store.Result)
	if !ok {
		t.Fatalf("transformResults() returned %T, want []*store.Result", out)
	}
	if results == nil {
		t.Error("transformResults() must return a non-nil slice so the JSON response is an array")
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestTransformResults_ProjectionSkipsMissingPaths(t *testing.T) {
	results := []*store.Result{
		testResult(t, "run-1", `{"lut":3}`),
		testResult(t, "run-2", ""),
	}

	out, err := transformResults(results, []string{"id", "metadata.lut"}, false)
	if err != nil {
		t.Fatalf("transformResults() error = %v", err)
	}

	docs, ok := out.([]map[string]any)
	if !ok {
		t.Fatalf("transformResults() returned %T, want []map[string]any", out)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0]["metadata.lut"] != float64(3) {
		t.Errorf("docs[0][metadata.lut] = %v, want 3", docs[0]["metadata.lut"])
	}
	if _, present := docs[1]["metadata.lut"]; present {
		t.Error("projection over a row without metadata must omit the path, not error")
	}
	if docs[1]["id"] != "run-2" {
		t.Errorf("docs[1][id] = %v, want run-2", docs[1]["id"])
	}
}

func TestTransformResults_ProjectionThenFlatten(t *testing.T) {
	results := []*store.Result{testResult(t, "run-1", `{"nested":{"deep":true}}`)}

	out, err := transformResults(results, []string{"metadata"}, true)
	if err != nil {
		t.Fatalf("transformResults() error = %v", err)
	}

	docs := out.([]map[string]any)
	want := map[string]any{"metadata.nested.deep": true}
	if !reflect.DeepEqual(docs[0], want) {
		t.Errorf("docs[0] = %v, want %v", docs[0], want)
	}
}
