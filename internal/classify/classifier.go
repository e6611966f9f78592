// Package classify turns one field's free-text business logic into a typed
// ParsedLogic record: which rule families apply, the controlling condition,
// the document class, and a heuristic confidence.
//
// Detection is table-driven: defaultPatterns() declares
// (category, regex, weight) rows consumed by a single scan loop. Within a
// category the first matching row wins; categories are independent of each
// other, so one snippet can carry, say, both a visibility and a mandatory
// verdict.
package classify

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/schema"
)

type compiledPattern struct {
	LogicPattern
	re *regexp.Regexp
}

type compiledTemplate struct {
	name string
	re   *regexp.Regexp
}

// Classifier evaluates the pattern table against logic text. Safe for
// concurrent use once built; per-field classification has no side effects.
type Classifier struct {
	patterns  []compiledPattern
	templates []compiledTemplate

	otherwiseRe *regexp.Regexp
	responseRe  *regexp.Regexp
	nonMandRe   *regexp.Regexp

	logger *zap.SugaredLogger
}

// NewClassifier compiles the built-in pattern table.
func NewClassifier(logger *zap.SugaredLogger) *Classifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Classifier{
		otherwiseRe: regexp.MustCompile(`(?i)\b(?:otherwise|else)\b`),
		responseRe:  regexp.MustCompile(`(?i)^\s*response\b`),
		nonMandRe:   regexp.MustCompile(`(?i)\b(?:non[- ]?mandatory|not\s+mandatory)\b`),
		logger:      logger,
	}
	for _, p := range defaultPatterns() {
		c.patterns = append(c.patterns, compiledPattern{
			LogicPattern: p,
			re:           regexp.MustCompile("(?i)" + p.Pattern),
		})
	}
	for _, t := range conditionTemplates {
		c.templates = append(c.templates, compiledTemplate{
			name: t.Name,
			re:   regexp.MustCompile("(?i)" + t.Pattern),
		})
	}
	return c
}

// Classify evaluates one field's logic text. A nil result never occurs; a
// field with empty logic yields a zero-confidence ParsedLogic.
func (c *Classifier) Classify(field *schema.FieldInfo) *ParsedLogic {
	parsed := &ParsedLogic{
		FieldID:   field.ID,
		FieldName: field.Name,
	}
	text := strings.TrimSpace(field.Logic)
	if text == "" {
		return parsed
	}

	// Programmatic expressions are out of scope for the deterministic
	// path; bail out before anything else can match.
	if name := c.firstMatch(CategorySkip, text); name != "" {
		parsed.ShouldSkip = true
		parsed.MatchedPatterns = append(parsed.MatchedPatterns, name)
		c.logger.Debugw("skipping programmatic logic", "field", field.Name, "pattern", name)
		return parsed
	}

	c.detectDestinationOnly(parsed, text)
	c.detectOCR(parsed, text)
	if !parsed.IsDestinationOnly {
		c.detectVerify(parsed, text)
	}
	c.detectToggles(parsed, text)
	c.detectExternal(parsed, field, text)
	c.detectCopy(parsed, text)
	if parsed.DocumentClass == DocUnknown {
		c.detectDocumentClass(parsed, text+" "+field.Name)
	}
	c.extractConditions(parsed, text)

	parsed.HasOtherwise = c.otherwiseRe.MatchString(text)
	return parsed
}

func (c *Classifier) detectDestinationOnly(parsed *ParsedLogic, text string) {
	for i := range c.patterns {
		p := &c.patterns[i]
		if p.Category != CategoryDestinationOnly {
			continue
		}
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		parsed.IsDestinationOnly = true
		c.record(parsed, p)
		if len(m) > 1 {
			parsed.DocumentClass = docClassFromText(m[1])
		}
		return
	}
}

func (c *Classifier) detectOCR(parsed *ParsedLogic, text string) {
	for i := range c.patterns {
		p := &c.patterns[i]
		if p.Category != CategoryOCR {
			continue
		}
		if p.re.MatchString(text) {
			parsed.IsOCR = true
			c.record(parsed, p)
			return
		}
	}
}

// detectVerify matches the per-document-class validation phrases, rejecting
// any occurrence immediately followed by "response" so that echo/status
// fields do not become triggers.
func (c *Classifier) detectVerify(parsed *ParsedLogic, text string) {
	for i := range c.patterns {
		p := &c.patterns[i]
		if p.Category != CategoryVerify {
			continue
		}
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if c.responseRe.MatchString(text[loc[1]:]) {
				continue
			}
			parsed.IsVerify = true
			if parsed.DocumentClass == DocUnknown {
				parsed.DocumentClass = p.DocumentClass
			}
			c.record(parsed, p)
			return
		}
	}
}

// detectToggles handles the visibility, mandatory, and disable families.
// Direction matters: the invisible and non-mandatory rows run first, and the
// positive rows are evaluated with the negative phrases redacted so that
// "non mandatory" does not also read as "mandatory".
func (c *Classifier) detectToggles(parsed *ParsedLogic, text string) {
	mandText := c.nonMandRe.ReplaceAllString(text, "")
	for i := range c.patterns {
		p := &c.patterns[i]
		switch p.Category {
		case CategoryInvisible:
			if !parsed.MakeInvisible && p.re.MatchString(text) {
				parsed.MakeInvisible = true
				c.record(parsed, p)
			}
		case CategoryVisible:
			if !parsed.MakeVisible && p.re.MatchString(text) {
				parsed.MakeVisible = true
				c.record(parsed, p)
			}
		case CategoryNonMandatory:
			if !parsed.MakeNonMandatory && p.re.MatchString(text) {
				parsed.MakeNonMandatory = true
				c.record(parsed, p)
			}
		case CategoryMandatory:
			if !parsed.MakeMandatory && p.re.MatchString(mandText) {
				parsed.MakeMandatory = true
				c.record(parsed, p)
			}
		case CategoryDisable:
			if !parsed.Disable && p.re.MatchString(text) {
				parsed.Disable = true
				c.record(parsed, p)
			}
		}
	}
}

// detectExternal evaluates the external-dropdown rows only for
// dropdown-family field types; external-value rows run unconditionally.
func (c *Classifier) detectExternal(parsed *ParsedLogic, field *schema.FieldInfo, text string) {
	for i := range c.patterns {
		p := &c.patterns[i]
		switch p.Category {
		case CategoryExtDropdown:
			if field.IsDropdownFamily() && !parsed.ExtDropdown && p.re.MatchString(text) {
				parsed.ExtDropdown = true
				c.record(parsed, p)
			}
		case CategoryExtValue:
			if !parsed.ExtValue && p.re.MatchString(text) {
				parsed.ExtValue = true
				c.record(parsed, p)
			}
		}
	}
}

func (c *Classifier) detectCopy(parsed *ParsedLogic, text string) {
	for i := range c.patterns {
		p := &c.patterns[i]
		if p.Category != CategoryCopy {
			continue
		}
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		parsed.IsCopy = true
		if len(m) > 1 {
			parsed.CopySourceName = strings.TrimSpace(m[1])
		}
		c.record(parsed, p)
		return
	}
}

// detectDocumentClass scans the doc-class keyword rows in table order; the
// first class with any hit wins.
func (c *Classifier) detectDocumentClass(parsed *ParsedLogic, text string) {
	for i := range c.patterns {
		p := &c.patterns[i]
		if p.Category != CategoryDocClass {
			continue
		}
		if p.re.MatchString(text) {
			parsed.DocumentClass = p.DocumentClass
			c.record(parsed, p)
			return
		}
	}
}

// extractConditions runs the ordered condition templates; the first template
// producing any match supplies all the conditions for this field.
func (c *Classifier) extractConditions(parsed *ParsedLogic, text string) {
	for _, tmpl := range c.templates {
		matches := tmpl.re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			fieldRef := strings.TrimSpace(m[1])
			values := splitConditionValues(m[2])
			if fieldRef == "" || len(values) == 0 {
				continue
			}
			parsed.Conditions = append(parsed.Conditions, Condition{
				FieldRef: fieldRef,
				Operator: "in",
				Values:   values,
			})
		}
		if len(parsed.Conditions) > 0 {
			parsed.SourceFieldName = parsed.Conditions[0].FieldRef
			parsed.MatchedPatterns = append(parsed.MatchedPatterns, tmpl.name)
			return
		}
	}
}

func (c *Classifier) firstMatch(category Category, text string) string {
	for i := range c.patterns {
		p := &c.patterns[i]
		if p.Category == category && p.re.MatchString(text) {
			return p.Name
		}
	}
	return ""
}

func (c *Classifier) record(parsed *ParsedLogic, p *compiledPattern) {
	parsed.MatchedPatterns = append(parsed.MatchedPatterns, p.Name)
	if p.Confidence > parsed.Confidence {
		parsed.Confidence = p.Confidence
	}
}

// splitConditionValues splits a raw captured value list on a literal " or "
// and strips quoting.
func splitConditionValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	var values []string
	for _, v := range strings.Split(raw, " or ") {
		v = strings.Trim(strings.TrimSpace(v), `'"`)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// docClassFromText maps a captured document reference to its normalized
// class.
func docClassFromText(text string) DocumentClass {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "pan"):
		return DocPAN
	case strings.Contains(t, "gst"):
		return DocGSTIN
	case strings.Contains(t, "bank"), strings.Contains(t, "cheque"),
		strings.Contains(t, "account"), strings.Contains(t, "penny"):
		return DocBank
	case strings.Contains(t, "msme"), strings.Contains(t, "udyam"):
		return DocMSME
	case strings.Contains(t, "cin"), strings.Contains(t, "incorporation"):
		return DocCIN
	case strings.Contains(t, "aadhar"), strings.Contains(t, "aadhaar"):
		return DocAadhaar
	}
	return DocUnknown
}
