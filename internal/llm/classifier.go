// Package llm defines the pluggable fallback classifier invoked for logic
// text the deterministic patterns cannot confidently classify. The
// extraction core depends only on the Classifier interface; no provider is
// required.
package llm

import "context"

// FieldContext carries the minimal field metadata a fallback classifier
// needs alongside the raw logic text.
type FieldContext struct {
	FieldID   int    `json:"fieldId"`
	Name      string `json:"name"`
	FieldType string `json:"fieldType"`
	PanelName string `json:"panelName,omitempty"`
}

// Selection is a fallback classifier's best-guess rule selection.
type Selection struct {
	ActionType    string  `json:"actionType"`
	DocumentClass string  `json:"documentClass,omitempty"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason,omitempty"`
}

// Classifier is the fallback contract: given raw logic text and field
// context, return a best-guess selection with a confidence score.
type Classifier interface {
	Classify(ctx context.Context, logicText string, fieldCtx FieldContext) (*Selection, error)
}
