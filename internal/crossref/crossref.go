// Package crossref consumes the optional intra-panel references file: field
// dependencies extracted by an upstream collaborator, used here to enrich
// per-field logic text before classification.
package crossref

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/registry"
)

// Reference is one field-to-field dependency.
type Reference struct {
	Panel                 string `json:"panel,omitempty"`
	SourceField           string `json:"source_field"`
	TargetField           string `json:"target_field"`
	ReferenceType         string `json:"reference_type"`
	DependencyDescription string `json:"dependency_description"`
}

// File is the intra-panel references document.
type File struct {
	References []Reference `json:"references"`
}

// Load reads an intra-panel references file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intra-panel references: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse intra-panel references: %w", err)
	}
	return &f, nil
}

// Enrich appends each reference's dependency description to its target
// field's logic text. A "data_source" reference additionally marks the
// target as fed by its source, phrased the way the classifier's
// destination-only patterns expect. Returns the number of fields touched;
// unresolvable targets are skipped.
func Enrich(f *File, reg *registry.Registry, logger *zap.SugaredLogger) int {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	touched := 0
	for _, ref := range f.References {
		target := reg.Match(ref.TargetField)
		if target == nil {
			logger.Debugw("intra-panel target unresolved", "target", ref.TargetField)
			continue
		}
		if ref.DependencyDescription != "" {
			target.AppendLogic(ref.DependencyDescription)
			touched++
		}
		if ref.ReferenceType == "data_source" && ref.SourceField != "" {
			target.AppendLogic(fmt.Sprintf("Data will come from %s validation", ref.SourceField))
			touched++
		}
	}
	return touched
}
