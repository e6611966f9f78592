package extract

import (
	"encoding/json"
	"fmt"

	"github.com/a3tai/formfill-rulegen/internal/rules"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// populateDocument attaches each rule to the formFillRules array of the
// field matching its primary source id. Rules are serialized here, before
// attachment, so their field order survives the generic document tree.
// Fields with no rules keep an explicit empty array; rule objects are never
// mutated.
func populateDocument(doc *schema.Document, ruleList []*rules.GeneratedRule) error {
	doc.EnsureRuleArrays()

	byField := make(map[int][]json.RawMessage)
	var order []int
	for _, r := range ruleList {
		if len(r.SourceIDs) == 0 {
			continue
		}
		primary := r.SourceIDs[0]
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to serialize rule %d: %w", r.ID, err)
		}
		if _, seen := byField[primary]; !seen {
			order = append(order, primary)
		}
		byField[primary] = append(byField[primary], raw)
	}

	for _, fieldID := range order {
		doc.AttachRules(fieldID, byField[fieldID])
	}
	return nil
}
