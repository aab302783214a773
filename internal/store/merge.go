// ABOUTME: Field-level merge rule for result submissions
// ABOUTME: Incoming fields win only when present; absent fields retain stored values

package store

import (
	"bytes"
	"encoding/json"
)

// jsonPresent reports whether a submitted JSON document carries data.
// nil, JSON null and empty objects/arrays all count as "not supplied" and
// must not clobber a previously stored value.
func jsonPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return false
	case bytes.Equal(trimmed, []byte("null")):
		return false
	case bytes.Equal(trimmed, []byte("{}")):
		return false
	case bytes.Equal(trimmed, []byte("[]")):
		return false
	}
	return true
}

// mergeResult applies the submit merge policy to an existing row.
//
// id and name always take the incoming value. category and the three JSON
// columns take the incoming value only when it is present, otherwise the
// stored value is retained. The caller refreshes the timestamp.
func mergeResult(existing, incoming *Result) *Result {
	merged := &Result{
		ID:        incoming.ID,
		Name:      incoming.Name,
		Category:  existing.Category,
		Metadata:  existing.Metadata,
		Timing:    existing.Timing,
		Synthesis: existing.Synthesis,
	}

	if incoming.Category != nil && *incoming.Category != "" {
		merged.Category = incoming.Category
	}
	if jsonPresent(incoming.Metadata) {
		merged.Metadata = incoming.Metadata
	}
	if jsonPresent(incoming.Timing) {
		merged.Timing = incoming.Timing
	}
	if jsonPresent(incoming.Synthesis) {
		merged.Synthesis = incoming.Synthesis
	}

	return merged
}
