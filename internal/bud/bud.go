// Package bud enriches field logic from the original business-requirements
// document (BUD) PDF. Field names found in the BUD text pick up the sentence
// they appear in, which gives the classifier logic snippets the structured
// schema dropped.
package bud

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/registry"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// Info summarizes the processed BUD.
type Info struct {
	Path           string
	PageCount      int
	FieldsEnriched int
}

// Enrich validates the BUD PDF, extracts its plain text, and appends the
// sentence surrounding each field-name mention to that field's logic text
// when the field has none of its own.
func Enrich(path string, reg *registry.Registry, logger *zap.SugaredLogger) (*Info, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if err := api.ValidateFile(path, nil); err != nil {
		return nil, fmt.Errorf("BUD PDF failed validation: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to count BUD pages: %w", err)
	}

	text, err := extractText(path)
	if err != nil {
		return nil, err
	}

	info := &Info{Path: path, PageCount: pageCount}
	sentences := splitSentences(text)
	for _, field := range reg.Fields() {
		if field.Logic != "" || len(field.Name) < 4 {
			continue
		}
		if s := findMention(sentences, field); s != "" {
			field.AppendLogic(s)
			info.FieldsEnriched++
			logger.Debugw("field enriched from BUD", "field", field.Name)
		}
	}
	return info, nil
}

func extractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open BUD PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")
	var sentences []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';'
	}) {
		s = strings.TrimSpace(s)
		if len(s) > 10 {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// findMention returns the first sentence mentioning the field by normalized
// name, provided the sentence says more than just the name itself.
func findMention(sentences []string, field *schema.FieldInfo) string {
	name := registry.Normalize(field.Name)
	for _, s := range sentences {
		norm := registry.Normalize(s)
		if strings.Contains(norm, name) && len(norm) > len(name)+10 {
			return s
		}
	}
	return ""
}
