package rules

// ActionType is one of the closed set of rule archetypes understood by the
// downstream form-rendering engine.
type ActionType string

const (
	ActionMakeVisible      ActionType = "MAKE_VISIBLE"
	ActionMakeInvisible    ActionType = "MAKE_INVISIBLE"
	ActionMakeMandatory    ActionType = "MAKE_MANDATORY"
	ActionMakeNonMandatory ActionType = "MAKE_NON_MANDATORY"
	ActionMakeDisabled     ActionType = "MAKE_DISABLED"
	ActionMakeEnabled      ActionType = "MAKE_ENABLED"
	ActionVerify           ActionType = "VERIFY"
	ActionOCR              ActionType = "OCR"
	ActionExtDropdown      ActionType = "EXT_DROP_DOWN"
	ActionExtValue         ActionType = "EXT_VALUE"
	ActionCopyTo           ActionType = "COPY_TO"
	ActionConvertTo        ActionType = "CONVERT_TO"
	ActionClearField       ActionType = "CLEAR_FIELD"
	ActionConcat           ActionType = "CONCAT"
	ActionValidation       ActionType = "VALIDATION"
	ActionDeleteDocument   ActionType = "DELETE_DOCUMENT"
	ActionUndeleteDocument ActionType = "UNDELETE_DOCUMENT"
	ActionCopyToDocStorage ActionType = "COPY_TO_DOCUMENT_STORAGE_ID"
	ActionSetDate          ActionType = "SET_DATE"
	ActionCopyTxnID        ActionType = "COPY_TXNID_TO_FORM_FILL"
	ActionSessionDropdown  ActionType = "SESSION_BASED_DROP_DOWN"
	ActionSessionValue     ActionType = "SESSION_BASED_VALUE"
)

// Condition operators for the trigger predicate.
const (
	ConditionIn    = "IN"
	ConditionNotIn = "NOT_IN"
)

// Processing location of a rule.
const (
	ProcessingClient = "CLIENT"
	ProcessingServer = "SERVER"
)

// Conventional source types carried on external lookup rules.
const (
	SourceFormFillDropdown  = "FORM_FILL_DROP_DOWN"
	SourceExternalDataValue = "EXTERNAL_DATA_VALUE"
)

// NoField is the explicit "no field mapped at this ordinal" sentinel used in
// positional destination arrays.
const NoField = -1

// GeneratedRule is the canonical output record attached to a field's
// formFillRules array. JSON field order is part of the output contract.
type GeneratedRule struct {
	ID                   int        `json:"id"`
	CreateUser           string     `json:"createUser"`
	UpdateUser           string     `json:"updateUser"`
	ActionType           ActionType `json:"actionType"`
	ProcessingType       string     `json:"processingType"`
	SourceIDs            []int      `json:"sourceIds"`
	DestinationIDs       []int      `json:"destinationIds"`
	PostTriggerRuleIDs   []int      `json:"postTriggerRuleIds"`
	Button               string     `json:"button"`
	Searchable           bool       `json:"searchable"`
	ExecuteOnFill        bool       `json:"executeOnFill"`
	ExecuteOnRead        bool       `json:"executeOnRead"`
	ExecuteOnEsign       bool       `json:"executeOnEsign"`
	ExecutePostEsign     bool       `json:"executePostEsign"`
	RunPostConditionFail bool       `json:"runPostConditionFail"`

	SourceType         string            `json:"sourceType,omitempty"`
	ConditionalValues  []string          `json:"conditionalValues,omitempty"`
	Condition          string            `json:"condition,omitempty"`
	ConditionValueType string            `json:"conditionValueType,omitempty"`
	Params             map[string]string `json:"params,omitempty"`
	OnStatusFail       string            `json:"onStatusFail,omitempty"`
}

// IsGroupable reports whether rules of this action type may be merged by the
// consolidator when they share a controlling field and condition.
func (a ActionType) IsGroupable() bool {
	switch a {
	case ActionMakeVisible, ActionMakeInvisible, ActionMakeMandatory,
		ActionMakeNonMandatory, ActionMakeDisabled, ActionMakeEnabled:
		return true
	}
	return false
}

// IsPositional reports whether rules of this action type carry an ordinal
// destination array, making variants for the same source interchangeable up
// to slot population.
func (a ActionType) IsPositional() bool {
	switch a {
	case ActionVerify, ActionOCR:
		return true
	}
	return false
}

// Inverse returns the paired opposite action for the visibility and
// mandatory families, or "" when the action has no conventional pair.
func (a ActionType) Inverse() ActionType {
	switch a {
	case ActionMakeVisible:
		return ActionMakeInvisible
	case ActionMakeInvisible:
		return ActionMakeVisible
	case ActionMakeMandatory:
		return ActionMakeNonMandatory
	case ActionMakeNonMandatory:
		return ActionMakeMandatory
	}
	return ""
}

// IDGenerator hands out sequential rule ids for one extraction run. It is an
// explicit value threaded through the builders; there is no process-wide
// counter.
type IDGenerator struct {
	next int
}

// NewIDGenerator starts a generator at the given base id.
func NewIDGenerator(base int) *IDGenerator {
	return &IDGenerator{next: base}
}

// Next returns the next free rule id.
func (g *IDGenerator) Next() int {
	id := g.next
	g.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (g *IDGenerator) Peek() int {
	return g.next
}
