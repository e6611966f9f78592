package mcp

import (
	"strings"
	"testing"

	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/config"
)

const testCatalog = `{
  "content": [
    {
      "id": 501,
      "name": "PAN Verification",
      "action": "VERIFY",
      "source": "PAN_NUMBER",
      "processingType": "SERVER",
      "button": "Verify",
      "destinationFields": {
        "numberOfItems": 1,
        "fields": [{"name": "Name as per PAN", "ordinal": 1, "mandatory": true}]
      }
    }
  ]
}`

func testServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog), nil)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	s, err := NewServer(config.DefaultConfig(), cat, nil, nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func TestNewServer(t *testing.T) {
	s := testServer(t)
	if s.mcpServer == nil {
		t.Error("Expected underlying MCP server to be created")
	}
	if s.classifier == nil {
		t.Error("Expected classifier to be wired")
	}
}

func TestNewServerRejectsNilCatalog(t *testing.T) {
	if _, err := NewServer(config.DefaultConfig(), nil, nil, nil); err == nil {
		t.Error("Expected error for nil catalog")
	}
}

func TestFormatCatalogEntries(t *testing.T) {
	s := testServer(t)
	text := s.formatCatalogEntries(s.catalog.Entries())

	for _, want := range []string{"PAN Verification", "[501]", "VERIFY", "Name as per PAN", "Button: Verify"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in formatted output:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "1 catalog entry") {
		t.Errorf("Expected singular phrasing, got:\n%s", text)
	}
}

func TestSortedActionKeys(t *testing.T) {
	got := sortedActionKeys(map[string]int{"VERIFY": 1, "MAKE_VISIBLE": 2, "OCR": 3})
	want := []string{"MAKE_VISIBLE", "OCR", "VERIFY"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Key %d = %s, want %s", i, got[i], want[i])
		}
	}
}
