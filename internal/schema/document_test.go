package schema

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

const sampleSchema = `{
  "id": 42,
  "name": "Vendor Onboarding",
  "template": {
    "documentTypes": [
      {
        "name": "KYC",
        "formFillMetadatas": [
          {
            "id": 10,
            "formTag": {"name": "Tax Details", "type": "PANEL"},
            "formOrder": 1
          },
          {
            "id": 11,
            "formTag": {"name": "PAN Number", "type": "TEXT", "logic": "Perform PAN validation"},
            "variableName": "panNumber",
            "mandatory": true,
            "formOrder": 2,
            "formFillRules": [
              {"id": 8000, "actionType": "VERIFY"}
            ]
          },
          {
            "id": 12,
            "formTag": {"name": "Name as per PAN", "type": "TEXT"},
            "logic": "Data will come from PAN validation",
            "formOrder": 3
          },
          {
            "id": 13,
            "formTag": {"name": "Bank Details", "type": "PANEL"},
            "formOrder": 4
          },
          {
            "id": 14,
            "formTag": {"name": "IFSC Code", "type": "TEXT"},
            "formOrder": 5
          }
        ]
      }
    ]
  }
}`

func TestParseFlattensFields(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	fields := doc.Fields()
	if len(fields) != 3 {
		t.Fatalf("Expected 3 fields (panels excluded), got %d", len(fields))
	}

	pan := doc.FieldByID(11)
	if pan == nil {
		t.Fatal("Expected field 11 to be present")
	}
	if pan.Name != "PAN Number" {
		t.Errorf("Expected name 'PAN Number', got %q", pan.Name)
	}
	if pan.VariableName != "panNumber" {
		t.Errorf("Expected variable name 'panNumber', got %q", pan.VariableName)
	}
	if !pan.IsMandatory {
		t.Error("Expected field 11 to be mandatory")
	}
	if pan.Logic != "Perform PAN validation" {
		t.Errorf("Expected formTag logic to be picked up, got %q", pan.Logic)
	}
	if pan.FormOrder != 2 {
		t.Errorf("Expected formOrder 2, got %f", pan.FormOrder)
	}
}

func TestParsePanelContext(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if f := doc.FieldByID(11); f.PanelName != "Tax Details" {
		t.Errorf("Expected field 11 in panel 'Tax Details', got %q", f.PanelName)
	}
	if f := doc.FieldByID(14); f.PanelName != "Bank Details" {
		t.Errorf("Expected field 14 in panel 'Bank Details', got %q", f.PanelName)
	}
}

func TestParseEntryLevelLogicWins(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Field 12 has logic on the entry, not the formTag.
	if f := doc.FieldByID(12); f.Logic != "Data will come from PAN validation" {
		t.Errorf("Expected entry-level logic, got %q", f.Logic)
	}
}

func TestParseRejectsMalformedSchema(t *testing.T) {
	if _, err := Parse([]byte(`{"noTemplate": true}`)); err == nil {
		t.Error("Expected error for schema without template")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
	if _, err := Parse([]byte(`{"template": {"documentTypes": "wrong"}}`)); err == nil {
		t.Error("Expected error for non-array documentTypes")
	}
}

func TestMaxRuleID(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := doc.MaxRuleID(); got != 8000 {
		t.Errorf("Expected max rule id 8000, got %d", got)
	}
}

func TestEnsureRuleArrays(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	doc.EnsureRuleArrays()

	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// Every non-panel entry carries an explicit array now.
	if got := bytes.Count(data, []byte(`"formFillRules"`)); got != 3 {
		t.Errorf("Expected 3 formFillRules arrays, got %d", got)
	}
}

func TestAttachRulesPreservesFieldOrder(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	doc.EnsureRuleArrays()

	raw := json.RawMessage(`{"id":9000,"actionType":"MAKE_VISIBLE","sourceIds":[11]}`)
	if !doc.AttachRules(12, []json.RawMessage{raw}) {
		t.Fatal("AttachRules returned false for an existing field")
	}
	if doc.AttachRules(999, []json.RawMessage{raw}) {
		t.Error("AttachRules should return false for an unknown field")
	}

	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)

	// The raw rule keeps id before actionType even though the generic tree
	// sorts map keys.
	idPos := strings.Index(out, `"id": 9000`)
	actionPos := strings.Index(out, `"actionType": "MAKE_VISIBLE"`)
	if idPos < 0 || actionPos < 0 {
		t.Fatalf("Attached rule not found in output:\n%s", out)
	}
	if idPos > actionPos {
		t.Error("Expected rule field order to be preserved through marshaling")
	}

	// Pre-existing rule on field 11 is untouched.
	if !strings.Contains(out, `"id": 8000`) {
		t.Error("Expected pre-existing rule to survive")
	}
}

func TestMarshalDeterministic(t *testing.T) {
	doc, err := Parse([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	first, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	second, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Expected repeated marshaling to be byte-identical")
	}
}

func TestAppendLogic(t *testing.T) {
	f := &FieldInfo{}

	f.AppendLogic("  ")
	if f.Logic != "" {
		t.Errorf("Appending whitespace should be a no-op, got %q", f.Logic)
	}

	f.AppendLogic("First snippet")
	if f.Logic != "First snippet" {
		t.Errorf("Expected first snippet verbatim, got %q", f.Logic)
	}

	f.AppendLogic("Second snippet")
	if f.Logic != "First snippet. Second snippet" {
		t.Errorf("Expected snippets joined with a period, got %q", f.Logic)
	}

	// Duplicates are not appended twice.
	f.AppendLogic("First snippet")
	if f.Logic != "First snippet. Second snippet" {
		t.Errorf("Expected duplicate snippet to be ignored, got %q", f.Logic)
	}
}

func TestIsDropdownFamily(t *testing.T) {
	tests := []struct {
		fieldType string
		want      bool
	}{
		{FieldTypeDropdown, true},
		{FieldTypeExternalDropdown, true},
		{FieldTypeSearchDropdown, true},
		{FieldTypeText, false},
		{FieldTypeFile, false},
	}
	for _, tt := range tests {
		f := &FieldInfo{FieldType: tt.fieldType}
		if got := f.IsDropdownFamily(); got != tt.want {
			t.Errorf("IsDropdownFamily(%s) = %v, want %v", tt.fieldType, got, tt.want)
		}
	}
}
