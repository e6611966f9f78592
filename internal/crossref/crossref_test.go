package crossref

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/formfill-rulegen/internal/registry"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

const sampleRefs = `{
  "references": [
    {
      "panel": "Tax Details",
      "source_field": "PAN Number",
      "target_field": "Name as per PAN",
      "reference_type": "data_source",
      "dependency_description": "Populated once the PAN is verified"
    },
    {
      "panel": "Tax Details",
      "source_field": "Do you have GST?",
      "target_field": "GSTIN Number",
      "reference_type": "visibility",
      "dependency_description": "Shown only when GST registration exists"
    },
    {
      "source_field": "PAN Number",
      "target_field": "No Such Field",
      "reference_type": "visibility",
      "dependency_description": "Dangling reference"
    }
  ]
}`

func refFields() []*schema.FieldInfo {
	return []*schema.FieldInfo{
		{ID: 1, Name: "PAN Number", FormOrder: 1},
		{ID: 2, Name: "Name as per PAN", FormOrder: 2},
		{ID: 3, Name: "Do you have GST?", FormOrder: 3},
		{ID: 4, Name: "GSTIN Number", FormOrder: 4},
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.json")
	if err := os.WriteFile(path, []byte(sampleRefs), 0o600); err != nil {
		t.Fatalf("write refs: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(f.References) != 3 {
		t.Errorf("Expected 3 references, got %d", len(f.References))
	}
	if f.References[0].ReferenceType != "data_source" {
		t.Errorf("Unexpected reference type: %s", f.References[0].ReferenceType)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/refs.json"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestEnrichAppendsDescriptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.json")
	if err := os.WriteFile(path, []byte(sampleRefs), 0o600); err != nil {
		t.Fatalf("write refs: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	fields := refFields()
	reg := registry.New(fields, nil)

	touched := Enrich(f, reg, nil)
	if touched != 3 {
		t.Errorf("Expected 3 enrichments (dangling target skipped), got %d", touched)
	}

	// The data_source reference adds both the description and the
	// destination-only phrase.
	nameField := fields[1]
	if !strings.Contains(nameField.Logic, "Populated once the PAN is verified") {
		t.Errorf("Expected description appended, got %q", nameField.Logic)
	}
	if !strings.Contains(nameField.Logic, "Data will come from PAN Number validation") {
		t.Errorf("Expected data-source phrase appended, got %q", nameField.Logic)
	}

	gstin := fields[3]
	if !strings.Contains(gstin.Logic, "Shown only when GST registration exists") {
		t.Errorf("Expected visibility description appended, got %q", gstin.Logic)
	}
}
