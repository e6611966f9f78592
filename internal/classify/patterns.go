package classify

// LogicPattern is one row of the declarative classification table: a
// category, a regex, and the confidence weight a match contributes. Within a
// category the first matching row wins; categories are evaluated
// independently of each other.
type LogicPattern struct {
	Name          string
	Category      Category
	Pattern       string // regex, compiled case-insensitively at startup
	Confidence    float64
	DocumentClass DocumentClass // set on verify and doc-class rows
}

// defaultPatterns returns the built-in classification table.
func defaultPatterns() []LogicPattern {
	return []LogicPattern{
		// Programmatic expressions the deterministic classifier
		// declines to handle.
		{
			Name:       "skip_execute_keyword",
			Category:   CategorySkip,
			Pattern:    `\bEXECUTE\b`,
			Confidence: 1.0,
		},
		{
			Name:       "skip_template_interpolation",
			Category:   CategorySkip,
			Pattern:    `\$\{[^}]+\}|\{\{[^}]+\}\}`,
			Confidence: 1.0,
		},
		{
			Name:       "skip_function_call",
			Category:   CategorySkip,
			Pattern:    `\b[a-zA-Z_][a-zA-Z0-9_]*\([^()]*\)\s*(==|!=|&&|\|\||=)`,
			Confidence: 1.0,
		},

		// Fields that only receive externally-sourced data.
		{
			Name:       "destination_from_validation",
			Category:   CategoryDestinationOnly,
			Pattern:    `\bdata\s+will\s+(?:be\s+)?(?:come|populated?|fetched|filled)\s+from\s+(?:the\s+)?([a-zA-Z ]+?)\s+(?:validation|verification|ocr|api)\b`,
			Confidence: 0.95,
		},
		{
			Name:       "destination_auto_populated",
			Category:   CategoryDestinationOnly,
			Pattern:    `\bauto[- ]?populated?\s+from\s+(?:the\s+)?([a-zA-Z ]+?)\s+(?:validation|verification|ocr|response)\b`,
			Confidence: 0.9,
		},

		// OCR extraction triggers.
		{
			Name:       "ocr_from_ocr",
			Category:   CategoryOCR,
			Pattern:    `\bfrom\s+(?:the\s+)?ocr\b`,
			Confidence: 0.95,
		},
		{
			Name:       "ocr_rule",
			Category:   CategoryOCR,
			Pattern:    `\bocr\s+rule\b`,
			Confidence: 0.9,
		},
		{
			Name:       "ocr_extract_from_image",
			Category:   CategoryOCR,
			Pattern:    `\bextract(?:ed)?\s+from\s+(?:the\s+)?(?:image|document|upload)\b`,
			Confidence: 0.85,
		},
		{
			Name:       "ocr_via_ocr",
			Category:   CategoryOCR,
			Pattern:    `\b(?:through|using|via|by)\s+ocr\b`,
			Confidence: 0.8,
		},

		// VERIFY triggers, one row per document class. The classifier
		// rejects matches immediately followed by "response" so echo
		// and status fields are not mistaken for triggers.
		{
			Name:          "verify_pan",
			Category:      CategoryVerify,
			Pattern:       `\b(?:perform\s+)?pan\s+(?:validation|verification)\b|\b(?:validate|verify)\s+(?:the\s+)?pan\b`,
			Confidence:    0.9,
			DocumentClass: DocPAN,
		},
		{
			Name:          "verify_gstin",
			Category:      CategoryVerify,
			Pattern:       `\b(?:perform\s+)?gst(?:in)?\s+(?:validation|verification)\b|\b(?:validate|verify)\s+(?:the\s+)?gst(?:in)?\b`,
			Confidence:    0.9,
			DocumentClass: DocGSTIN,
		},
		{
			Name:          "verify_bank",
			Category:      CategoryVerify,
			Pattern:       `\b(?:perform\s+)?(?:bank|penny[- ]?drop|account)\s+(?:validation|verification)\b|\b(?:validate|verify)\s+(?:the\s+)?(?:bank|account)\b`,
			Confidence:    0.9,
			DocumentClass: DocBank,
		},
		{
			Name:          "verify_msme",
			Category:      CategoryVerify,
			Pattern:       `\b(?:perform\s+)?(?:msme|udyam)\s+(?:validation|verification)\b|\b(?:validate|verify)\s+(?:the\s+)?(?:msme|udyam)\b`,
			Confidence:    0.9,
			DocumentClass: DocMSME,
		},
		{
			Name:          "verify_cin",
			Category:      CategoryVerify,
			Pattern:       `\b(?:perform\s+)?cin\s+(?:validation|verification)\b|\b(?:validate|verify)\s+(?:the\s+)?cin\b`,
			Confidence:    0.9,
			DocumentClass: DocCIN,
		},
		{
			Name:          "verify_aadhaar",
			Category:      CategoryVerify,
			Pattern:       `\b(?:perform\s+)?aadhaa?r\s+(?:validation|verification)\b|\b(?:validate|verify)\s+(?:the\s+)?aadhaa?r\b`,
			Confidence:    0.85,
			DocumentClass: DocAadhaar,
		},

		// Visibility, both directions.
		{
			Name:       "visibility_invisible",
			Category:   CategoryInvisible,
			Pattern:    `\b(?:make\s+)?(?:in-?visible|hidden|hide)\b`,
			Confidence: 0.85,
		},
		{
			Name:       "visibility_visible",
			Category:   CategoryVisible,
			Pattern:    `\b(?:make\s+)?(?:visible|show|display(?:ed)?)\b`,
			Confidence: 0.85,
		},

		// Mandatory, both directions.
		{
			Name:       "mandatory_non",
			Category:   CategoryNonMandatory,
			Pattern:    `\b(?:non[- ]?mandatory|not\s+mandatory|optional)\b`,
			Confidence: 0.85,
		},
		{
			Name:       "mandatory_make",
			Category:   CategoryMandatory,
			Pattern:    `\b(?:make\s+)?(?:mandatory|required|compulsory)\b`,
			Confidence: 0.85,
		},

		// Disablement.
		{
			Name:       "disable_field",
			Category:   CategoryDisable,
			Pattern:    `\b(?:non[- ]?editable|read[- ]?only|disable[d]?|grey(?:ed)?\s+out)\b`,
			Confidence: 0.85,
		},

		// External lookups.
		{
			Name:       "ext_dropdown_source",
			Category:   CategoryExtDropdown,
			Pattern:    `\b(?:external\s+table|excel|reference\s+table|lookup\s+table|master\s+(?:data|table|list)|cascad\w*|parent\s+drop[- ]?down)\b`,
			Confidence: 0.8,
		},
		{
			Name:       "ext_value_source",
			Category:   CategoryExtValue,
			Pattern:    `\bvalue\s+(?:will\s+be\s+|is\s+)?(?:fetched|derived|picked|taken)\s+from\s+(?:the\s+)?(?:external|reference|lookup|master)\b`,
			Confidence: 0.8,
		},

		// Cross-field copies.
		{
			Name:       "copy_same_as",
			Category:   CategoryCopy,
			Pattern:    `\b(?:same\s+as|cop(?:y|ied)\s+(?:of|from))\s+(?:the\s+)?(?:field\s+)?['"]?([a-zA-Z][a-zA-Z0-9 /&-]*?)['"]?\s*(?:field)?\s*(?:\.|,|$)`,
			Confidence: 0.8,
		},

		// Document-class hints scanned over (logic text + field name)
		// when no verify row already fixed the class.
		{
			Name:          "docclass_pan",
			Category:      CategoryDocClass,
			Pattern:       `\bpan\b|\bpermanent\s+account\s+number\b`,
			Confidence:    0.6,
			DocumentClass: DocPAN,
		},
		{
			Name:          "docclass_gstin",
			Category:      CategoryDocClass,
			Pattern:       `\bgst(?:in)?\b|\bgoods\s+and\s+services\s+tax\b`,
			Confidence:    0.6,
			DocumentClass: DocGSTIN,
		},
		{
			Name:          "docclass_bank",
			Category:      CategoryDocClass,
			Pattern:       `\bbank\b|\bifsc\b|\baccount\s+number\b|\bcancell?ed\s+cheque\b`,
			Confidence:    0.6,
			DocumentClass: DocBank,
		},
		{
			Name:          "docclass_msme",
			Category:      CategoryDocClass,
			Pattern:       `\bmsme\b|\budyam\b|\budyog\b`,
			Confidence:    0.6,
			DocumentClass: DocMSME,
		},
		{
			Name:          "docclass_cin",
			Category:      CategoryDocClass,
			Pattern:       `\bcin\b|\bcorporate\s+identification\s+number\b|\bincorporation\b`,
			Confidence:    0.6,
			DocumentClass: DocCIN,
		},
		{
			Name:          "docclass_aadhaar",
			Category:      CategoryDocClass,
			Pattern:       `\baadhaa?r\b|\buidai\b`,
			Confidence:    0.6,
			DocumentClass: DocAadhaar,
		},
	}
}

// conditionTemplates are the ordered "if FIELD is VALUE then" regex
// templates. Each template captures the field reference in group 1 and the
// raw value list in group 2; multiple values are split on a literal " or ".
var conditionTemplates = []struct {
	Name    string
	Pattern string
}{
	{
		Name:    "if_field_values_is",
		Pattern: `if\s+(?:the\s+)?field\s+['"]([^'"]+)['"]\s+values?\s+is\s+(.+?)\s+then\b`,
	},
	{
		Name:    "if_quoted_field_is",
		Pattern: `if\s+(?:the\s+)?['"]([^'"]+)['"]\s+(?:is|=)\s+['"]?(.+?)['"]?(?:\s+then\b|\s*,|\s*\.|$)`,
	},
	{
		Name:    "if_field_selected_as",
		Pattern: `if\s+(?:the\s+)?(?:field\s+)?['"]?([a-zA-Z][^'",.]*?)['"]?\s+(?:is\s+)?selected\s+as\s+['"]?(.+?)['"]?(?:\s+then\b|\s*,|\s*\.|$)`,
	},
	{
		Name:    "when_field_is",
		Pattern: `when\s+(?:the\s+)?['"]?([a-zA-Z][^'",.]*?)['"]?\s+is\s+['"]?(.+?)['"]?(?:\s+then\b|\s*,|\s*\.|$)`,
	},
}
