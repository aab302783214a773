// ABOUTME: Presentation transforms applied to retrieved results
// ABOUTME: Field projection with dotted sub-paths and flattening of nested JSON

package api

import (
	"encoding/json"
	"strings"

	"github.com/cergworks/cergdb/internal/store"
)

// resultDocument converts a stored result into a generic JSON document so
// the transforms below can treat stored columns and nested payload values
// uniformly.
func resultDocument(r *store.Result) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// projectFields reduces a document to the requested fields. Each field is a
// top-level key or a dotted path into a nested object ("metadata.lut").
// Missing paths are silently omitted rather than erroring, so a projection
// over a heterogeneous result set returns whatever each row has.
func projectFields(doc map[string]any, fields []string) map[string]any {
	projected := make(map[string]any, len(fields))
	for _, field := range fields {
		value, ok := lookupPath(doc, field)
		if !ok {
			continue
		}
		projected[field] = value
	}
	return projected
}

// lookupPath walks a dotted path through nested objects.
func lookupPath(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// flattenDocument rewrites nested objects into dotted top-level keys, so
// {"metadata": {"lut": 3}} becomes {"metadata.lut": 3}. Arrays and scalars
// are left as values.
func flattenDocument(doc map[string]any) map[string]any {
	flat := make(map[string]any, len(doc))
	flattenInto(flat, "", doc)
	return flat
}

func flattenInto(flat map[string]any, prefix string, doc map[string]any) {
	for key, value := range doc {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(flat, name, nested)
			continue
		}
		flat[name] = value
	}
}

// transformResults applies the optional projection and flatten transforms
// to a result set. With neither requested, the results pass through
// unchanged so the response stays an array of plain result objects.
func transformResults(results []*store.Result, fields []string, flatten bool) (any, error) {
	if len(fields) == 0 && !flatten {
		// A nil slice would encode as JSON null; the response is always
		// an array, empty store included
		if results == nil {
			results = []*store.Result{}
		}
		return results, nil
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		doc, err := resultDocument(r)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			doc = projectFields(doc, fields)
		}
		if flatten {
			doc = flattenDocument(doc)
		}
		out = append(out, doc)
	}
	return out, nil
}
