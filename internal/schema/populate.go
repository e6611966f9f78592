package schema

import "encoding/json"

// EnsureRuleArrays gives every field entry an explicit formFillRules array.
// Pre-existing rules are left in place; fields with none get an empty array
// rather than a missing key.
func (d *Document) EnsureRuleArrays() {
	for _, entry := range d.entries {
		if _, ok := entry["formFillRules"].([]any); !ok {
			entry["formFillRules"] = []any{}
		}
	}
}

// AttachRules appends pre-serialized rules to the formFillRules array of the
// field with the given id. The raw messages are carried through to output
// verbatim, which keeps the rule objects' field order intact. Returns false
// when the field id is not present in the document.
func (d *Document) AttachRules(fieldID int, rawRules []json.RawMessage) bool {
	entry, ok := d.entries[fieldID]
	if !ok {
		return false
	}
	existing, _ := entry["formFillRules"].([]any)
	for _, raw := range rawRules {
		existing = append(existing, raw)
	}
	entry["formFillRules"] = existing
	return true
}
