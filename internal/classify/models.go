package classify

// DocumentClass is a normalized document category referenced by logic text.
type DocumentClass string

const (
	DocUnknown DocumentClass = ""
	DocPAN     DocumentClass = "PAN"
	DocGSTIN   DocumentClass = "GSTIN"
	DocBank    DocumentClass = "BANK"
	DocMSME    DocumentClass = "MSME"
	DocCIN     DocumentClass = "CIN"
	DocAadhaar DocumentClass = "AADHAAR"
)

// Category is one independently-detected rule family. Multiple categories
// may match the same logic text; within a category the first matching
// pattern wins.
type Category string

const (
	CategorySkip            Category = "skip"
	CategoryDestinationOnly Category = "destination_only"
	CategoryOCR             Category = "ocr"
	CategoryVerify          Category = "verify"
	CategoryVisible         Category = "visible"
	CategoryInvisible       Category = "invisible"
	CategoryMandatory       Category = "mandatory"
	CategoryNonMandatory    Category = "non_mandatory"
	CategoryDisable         Category = "disable"
	CategoryExtDropdown     Category = "ext_dropdown"
	CategoryExtValue        Category = "ext_value"
	CategoryCopy            Category = "copy"
	CategoryDocClass        Category = "doc_class"
)

// Condition is one extracted trigger predicate: the referenced controlling
// field, an operator, and the values that satisfy it.
type Condition struct {
	FieldRef string   `json:"fieldRef"`
	Operator string   `json:"operator"` // always "in" at extraction time
	Values   []string `json:"values"`
}

// ParsedLogic is the classifier's verdict for one field's logic text.
type ParsedLogic struct {
	FieldID   int    `json:"fieldId"`
	FieldName string `json:"fieldName"`

	// Detected rule families.
	IsOCR            bool `json:"isOcr"`
	IsVerify         bool `json:"isVerify"`
	MakeVisible      bool `json:"makeVisible"`
	MakeInvisible    bool `json:"makeInvisible"`
	MakeMandatory    bool `json:"makeMandatory"`
	MakeNonMandatory bool `json:"makeNonMandatory"`
	Disable          bool `json:"disable"`
	ExtDropdown      bool `json:"extDropdown"`
	ExtValue         bool `json:"extValue"`
	IsCopy           bool `json:"isCopy"`

	// CopySourceName is the referenced field a copy rule reads from.
	CopySourceName string `json:"copySourceName,omitempty"`

	// HasOtherwise is true when the text carries an explicit
	// otherwise/else branch, which requests the paired inverse rule.
	HasOtherwise bool `json:"hasOtherwise"`

	DocumentClass   DocumentClass `json:"documentClass,omitempty"`
	SourceFieldName string        `json:"sourceFieldName,omitempty"`
	Conditions      []Condition   `json:"conditions,omitempty"`

	// IsDestinationOnly marks fields that receive externally-sourced
	// data. Such a field never acts as a VERIFY/OCR source, whatever
	// else matched.
	IsDestinationOnly bool `json:"isDestinationOnly"`

	Confidence float64 `json:"confidence"`
	ShouldSkip bool    `json:"shouldSkip"`

	// MatchedPatterns records pattern names for the extraction report.
	MatchedPatterns []string `json:"matchedPatterns,omitempty"`
}

// HasAnyMatch reports whether any category matched at all. Fields with no
// match and no skip verdict route to the fallback classifier or are dropped.
func (p *ParsedLogic) HasAnyMatch() bool {
	return p.IsOCR || p.IsVerify || p.MakeVisible || p.MakeInvisible ||
		p.MakeMandatory || p.MakeNonMandatory || p.Disable ||
		p.ExtDropdown || p.ExtValue || p.IsCopy || p.IsDestinationOnly
}
