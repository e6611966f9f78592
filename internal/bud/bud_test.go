package bud

import (
	"testing"

	"github.com/a3tai/formfill-rulegen/internal/schema"
)

func TestSplitSentences(t *testing.T) {
	text := "The PAN Number field must be verified online. Short.\nBank details; are captured next"
	sentences := splitSentences(text)

	if len(sentences) != 3 {
		t.Fatalf("Expected 3 sentences, got %d: %v", len(sentences), sentences)
	}
	if sentences[0] != "The PAN Number field must be verified online" {
		t.Errorf("Unexpected first sentence: %q", sentences[0])
	}
	// "Short" is under the minimum length and is dropped; the semicolon
	// splits the last line in two.
	if sentences[1] != "Bank details" {
		t.Errorf("Unexpected second sentence: %q", sentences[1])
	}
}

func TestFindMention(t *testing.T) {
	sentences := []string{
		"The PAN Number field must be verified against the income tax portal",
		"GSTIN Number",
		"Totally unrelated sentence about shipping",
	}

	field := &schema.FieldInfo{Name: "PAN Number"}
	got := findMention(sentences, field)
	if got != sentences[0] {
		t.Errorf("Expected mention sentence, got %q", got)
	}

	// A sentence that is just the field name carries no extra logic.
	bare := &schema.FieldInfo{Name: "GSTIN Number"}
	if got := findMention(sentences, bare); got != "" {
		t.Errorf("Expected no mention for bare name, got %q", got)
	}

	missing := &schema.FieldInfo{Name: "IFSC Code"}
	if got := findMention(sentences, missing); got != "" {
		t.Errorf("Expected no mention for absent field, got %q", got)
	}
}

func TestEnrichRejectsMissingFile(t *testing.T) {
	if _, err := Enrich("/nonexistent/bud.pdf", nil, nil); err == nil {
		t.Error("Expected error for missing BUD file")
	}
}
