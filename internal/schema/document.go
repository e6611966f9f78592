package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Well-known form tag types from the onboarding template schema.
const (
	FieldTypeText             = "TEXT"
	FieldTypeFile             = "FILE"
	FieldTypeDate             = "DATE"
	FieldTypeDropdown         = "DROP_DOWN"
	FieldTypeExternalDropdown = "EXTERNAL_DROP_DOWN"
	FieldTypeSearchDropdown   = "SEARCHABLE_DROP_DOWN"
	FieldTypePanel            = "PANEL"
)

// FieldInfo is one form field flattened out of the template tree.
// Logic may be appended to after parsing (cross-reference and BUD
// enrichment); everything else is immutable for the extraction run.
type FieldInfo struct {
	ID           int
	Name         string
	VariableName string
	FieldType    string
	IsMandatory  bool
	Logic        string
	PanelName    string
	FormOrder    float64
}

// IsDropdownFamily reports whether the field's declared type is any of the
// dropdown variants. External-dropdown rules are only considered for these.
func (f *FieldInfo) IsDropdownFamily() bool {
	switch f.FieldType {
	case FieldTypeDropdown, FieldTypeExternalDropdown, FieldTypeSearchDropdown:
		return true
	}
	return false
}

// AppendLogic adds a snippet to the field's logic text, separated so the
// classifier sees snippet boundaries.
func (f *FieldInfo) AppendLogic(snippet string) {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return
	}
	if f.Logic == "" {
		f.Logic = snippet
		return
	}
	if strings.Contains(f.Logic, snippet) {
		return
	}
	f.Logic = f.Logic + ". " + snippet
}

// Document is a loaded target-document schema. The raw tree is kept as
// generic JSON so attributes this tool does not model survive a round trip;
// fields are flattened into FieldInfo records with back-references into the
// tree for rule attachment.
type Document struct {
	root   map[string]any
	fields []*FieldInfo

	// entry index by field id, pointing at the formFillMetadatas map
	// inside the raw tree.
	entries map[int]map[string]any
}

// Load reads and parses a target-document schema file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse parses a target-document schema from raw JSON.
func Parse(data []byte) (*Document, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	doc := &Document{
		root:    root,
		entries: make(map[int]map[string]any),
	}
	if err := doc.walk(); err != nil {
		return nil, err
	}
	return doc, nil
}

// walk flattens template.documentTypes[].formFillMetadatas[] into FieldInfo
// records. PANEL entries are excluded from the field list but update the
// current panel context used as a locality hint downstream.
func (d *Document) walk() error {
	template, ok := d.root["template"].(map[string]any)
	if !ok {
		return fmt.Errorf("schema missing template object")
	}
	docTypes, ok := template["documentTypes"].([]any)
	if !ok {
		return fmt.Errorf("schema missing template.documentTypes array")
	}

	for _, dt := range docTypes {
		dtMap, ok := dt.(map[string]any)
		if !ok {
			continue
		}
		metas, ok := dtMap["formFillMetadatas"].([]any)
		if !ok {
			continue
		}

		currentPanel := ""
		for _, m := range metas {
			entry, ok := m.(map[string]any)
			if !ok {
				continue
			}

			field := parseEntry(entry)
			if field == nil {
				continue
			}
			if field.FieldType == FieldTypePanel {
				currentPanel = field.Name
				continue
			}
			field.PanelName = currentPanel

			d.fields = append(d.fields, field)
			d.entries[field.ID] = entry
		}
	}
	return nil
}

func parseEntry(entry map[string]any) *FieldInfo {
	id, ok := asInt(entry["id"])
	if !ok {
		return nil
	}

	field := &FieldInfo{ID: id}

	if tag, ok := entry["formTag"].(map[string]any); ok {
		field.Name, _ = tag["name"].(string)
		field.FieldType, _ = tag["type"].(string)
		if field.Logic == "" {
			field.Logic, _ = tag["logic"].(string)
		}
	}
	if v, ok := entry["variableName"].(string); ok {
		field.VariableName = v
	}
	if v, ok := entry["mandatory"].(bool); ok {
		field.IsMandatory = v
	}
	if v, ok := entry["logic"].(string); ok && v != "" {
		field.Logic = v
	}
	if v, ok := entry["formOrder"].(float64); ok {
		field.FormOrder = v
	}
	return field
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Fields returns the flattened field list in document order.
func (d *Document) Fields() []*FieldInfo {
	return d.fields
}

// FieldByID returns the field with the given id, or nil.
func (d *Document) FieldByID(id int) *FieldInfo {
	for _, f := range d.fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// MaxRuleID scans pre-existing formFillRules for the largest rule id so
// freshly generated ids never collide.
func (d *Document) MaxRuleID() int {
	maxID := 0
	for _, entry := range d.entries {
		rules, ok := entry["formFillRules"].([]any)
		if !ok {
			continue
		}
		for _, r := range rules {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := asInt(rm["id"]); ok && id > maxID {
				maxID = id
			}
		}
	}
	return maxID
}

// Marshal serializes the document tree with indentation. Map keys are
// emitted in sorted order, so repeated runs produce byte-identical output;
// vendor keys outside formFillRules come back normalized to that order, not
// in their input order. Rule objects, attached as raw messages, keep their
// exact field order.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d.root, "", "  ")
}

// Save writes the document tree to a file.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}
