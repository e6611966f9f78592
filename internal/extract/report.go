package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// FieldSkip records one field the deterministic path produced no rule for,
// with the reason, for manual audit.
type FieldSkip struct {
	FieldID   int    `json:"fieldId"`
	FieldName string `json:"fieldName"`
	Reason    string `json:"reason"`
}

// BUDInfo summarizes the optional BUD source document.
type BUDInfo struct {
	Path           string `json:"path"`
	PageCount      int    `json:"pageCount"`
	FieldsEnriched int    `json:"fieldsEnriched"`
}

// Report is the extraction summary written alongside the populated schema
// when --report is given. Absence of the report never blocks output.
type Report struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`
	SchemaPath  string    `json:"schemaPath,omitempty"`

	FieldCount int `json:"fieldCount"`

	ClassifiedBy struct {
		Deterministic int `json:"deterministic"`
		Fallback      int `json:"fallback"`
	} `json:"classifiedBy"`

	RulesByAction  map[string]int `json:"rulesByAction"`
	RulesTotal     int            `json:"rulesTotal"`
	Skips          []FieldSkip    `json:"skips,omitempty"`
	UnresolvedRefs []string       `json:"unresolvedRefs,omitempty"`
	CatalogMisses  []string       `json:"catalogMisses,omitempty"`
	BUD            *BUDInfo       `json:"bud,omitempty"`
}

// NewReport starts a report for one run.
func NewReport(schemaPath string) *Report {
	return &Report{
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		SchemaPath:    schemaPath,
		RulesByAction: make(map[string]int),
	}
}

func (r *Report) addSkip(fieldID int, fieldName, reason string) {
	r.Skips = append(r.Skips, FieldSkip{FieldID: fieldID, FieldName: fieldName, Reason: reason})
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
