// Package extract orchestrates one rule-extraction run: classify every
// field's logic text, build canonical rules, link OCR/VERIFY chains,
// consolidate, and write the rules back onto the document tree.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/classify"
	"github.com/a3tai/formfill-rulegen/internal/llm"
	"github.com/a3tai/formfill-rulegen/internal/registry"
	"github.com/a3tai/formfill-rulegen/internal/rules"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// DefaultRuleIDBase keeps generated ids clear of hand-authored rule ids in
// typical templates.
const DefaultRuleIDBase = 9000

// DefaultMinConfidence is the deterministic confidence below which a field
// routes to the fallback classifier.
const DefaultMinConfidence = 0.5

// Options tune one extraction run.
type Options struct {
	RuleIDBase    int
	MinConfidence float64
	Fallback      llm.Classifier // optional
	Logger        *zap.SugaredLogger
}

// Engine runs the extraction pipeline over one document. All state is owned
// by the run; engines are not shared across documents.
type Engine struct {
	doc        *schema.Document
	catalog    *catalog.Catalog
	registry   *registry.Registry
	classifier *classify.Classifier
	builder    *rules.Builder
	fallback   llm.Classifier
	minConf    float64
	logger     *zap.SugaredLogger
	report     *Report
}

// Result is the outcome of one run.
type Result struct {
	Rules  []*rules.GeneratedRule
	Report *Report
}

// New wires an engine for one document and catalog.
func New(doc *schema.Document, cat *catalog.Catalog, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	base := opts.RuleIDBase
	if base <= 0 {
		base = DefaultRuleIDBase
	}
	if maxExisting := doc.MaxRuleID(); maxExisting >= base {
		base = maxExisting + 1
	}
	minConf := opts.MinConfidence
	if minConf <= 0 {
		minConf = DefaultMinConfidence
	}

	reg := registry.New(doc.Fields(), logger)
	return &Engine{
		doc:        doc,
		catalog:    cat,
		registry:   reg,
		classifier: classify.NewClassifier(logger),
		builder:    rules.NewBuilder(rules.NewIDGenerator(base), reg, cat, logger),
		fallback:   opts.Fallback,
		minConf:    minConf,
		logger:     logger,
		report:     NewReport(""),
	}
}

// Report returns the run's extraction report.
func (e *Engine) Report() *Report {
	return e.report
}

// Run executes the full pipeline and attaches the resulting rules to the
// document. The run always completes; field-level misses yield fewer rules,
// never an error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	fields := e.doc.Fields()
	e.report.FieldCount = len(fields)

	var generated []*rules.GeneratedRule
	for _, field := range fields {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		generated = append(generated, e.extractField(ctx, field)...)
	}

	generated = append(generated, e.buildCrossValidations(generated)...)

	linkChains(generated)
	generated = consolidate(generated)

	for _, r := range generated {
		e.report.RulesByAction[string(r.ActionType)]++
	}
	e.report.RulesTotal = len(generated)

	if err := populateDocument(e.doc, generated); err != nil {
		return nil, err
	}
	return &Result{Rules: generated, Report: e.report}, nil
}

// extractField classifies one field and builds every rule its logic asks
// for.
func (e *Engine) extractField(ctx context.Context, field *schema.FieldInfo) []*rules.GeneratedRule {
	parsed := e.classifier.Classify(field)

	if parsed.ShouldSkip {
		e.report.addSkip(field.ID, field.Name, "programmatic expression")
		return nil
	}
	if field.Logic == "" {
		return nil
	}

	usedFallback := false
	if !parsed.HasAnyMatch() || parsed.Confidence < e.minConf {
		if refined := e.runFallback(ctx, field, parsed); refined != nil {
			parsed = refined
			usedFallback = true
		}
	}
	if !parsed.HasAnyMatch() {
		e.report.addSkip(field.ID, field.Name, "no classification match")
		return nil
	}
	if !usedFallback {
		if parsed.Confidence < e.minConf {
			// A below-threshold deterministic parse yields no rules; the
			// field either went through the fallback above or is dropped.
			e.report.addSkip(field.ID, field.Name, "confidence below threshold")
			return nil
		}
		e.report.ClassifiedBy.Deterministic++
	}

	var out []*rules.GeneratedRule
	out = append(out, e.buildToggleRules(parsed, field)...)

	if parsed.IsVerify {
		if r := e.builder.BuildVerify(parsed, field); r != nil {
			out = append(out, r)
		} else {
			e.report.CatalogMisses = append(e.report.CatalogMisses,
				fmt.Sprintf("VERIFY %s (%s)", field.Name, parsed.DocumentClass))
		}
	}
	if parsed.IsOCR {
		if r := e.builder.BuildOCR(parsed, field); r != nil {
			out = append(out, r)
		} else {
			e.report.addSkip(field.ID, field.Name, "ocr destination unresolved")
		}
	}
	if parsed.ExtDropdown {
		if r := e.builder.BuildExternalDropdown(field); r != nil {
			out = append(out, r)
		}
	}
	if parsed.ExtValue {
		if r := e.builder.BuildExternalValue(field); r != nil {
			out = append(out, r)
		}
	}
	if parsed.IsCopy && parsed.CopySourceName != "" {
		src := e.registry.Match(parsed.CopySourceName)
		if src != nil {
			if r := e.builder.BuildCopyTo(src, field); r != nil {
				out = append(out, r)
			}
		} else {
			e.report.UnresolvedRefs = append(e.report.UnresolvedRefs, parsed.CopySourceName)
		}
	}
	return out
}

// buildToggleRules handles the visibility, mandatory, and disable families
// for one classified field.
func (e *Engine) buildToggleRules(parsed *classify.ParsedLogic, field *schema.FieldInfo) []*rules.GeneratedRule {
	var out []*rules.GeneratedRule

	source, values := e.resolveCondition(parsed, field)

	if parsed.MakeVisible || parsed.MakeInvisible {
		action := rules.ActionMakeVisible
		if parsed.MakeInvisible && !parsed.MakeVisible {
			action = rules.ActionMakeInvisible
		}
		paired := parsed.HasOtherwise || (parsed.MakeVisible && parsed.MakeInvisible)
		out = append(out, e.buildToggle(action, source, values, field, paired)...)
	}

	if parsed.MakeMandatory || parsed.MakeNonMandatory {
		action := rules.ActionMakeMandatory
		if parsed.MakeNonMandatory && !parsed.MakeMandatory {
			action = rules.ActionMakeNonMandatory
		}
		paired := parsed.HasOtherwise || (parsed.MakeMandatory && parsed.MakeNonMandatory)
		out = append(out, e.buildToggle(action, source, values, field, paired)...)
	}

	if parsed.Disable {
		control := source
		if control == nil {
			control = field
		}
		if r := e.builder.BuildDisable(control, []int{field.ID}); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) buildToggle(action rules.ActionType, source *schema.FieldInfo, values []string, field *schema.FieldInfo, paired bool) []*rules.GeneratedRule {
	if source == nil || len(values) == 0 {
		e.report.addSkip(field.ID, field.Name, fmt.Sprintf("%s without resolvable condition", action))
		return nil
	}
	destIDs := e.toggleDestinations(source, field)
	if len(destIDs) == 0 {
		return nil
	}
	return e.builder.BuildConditionalToggle(action, source, destIDs, values, paired)
}

// toggleDestinations picks the affected fields. Normally the classified
// field itself is the destination; when the logic lives on the controlling
// field, the next fields inside the same panel take its place.
func (e *Engine) toggleDestinations(source, field *schema.FieldInfo) []int {
	if source.ID != field.ID {
		return []int{field.ID}
	}
	var dest []int
	for _, f := range e.registry.FindNearby(field.ID, 2, registry.After) {
		if f.PanelName == field.PanelName {
			dest = append(dest, f.ID)
		}
	}
	return dest
}

// resolveCondition resolves the first extracted condition's field reference.
// A miss is a silent per-rule skip, reported for audit.
func (e *Engine) resolveCondition(parsed *classify.ParsedLogic, field *schema.FieldInfo) (*schema.FieldInfo, []string) {
	if len(parsed.Conditions) == 0 {
		return nil, nil
	}
	cond := parsed.Conditions[0]
	source := e.registry.Match(cond.FieldRef)
	if source == nil {
		e.report.UnresolvedRefs = append(e.report.UnresolvedRefs, cond.FieldRef)
		e.logger.Debugw("condition reference unresolved",
			"field", field.Name, "reference", cond.FieldRef)
		return nil, nil
	}
	return source, cond.Values
}

// runFallback consults the pluggable LLM classifier, when configured, and
// maps an accepted selection back onto ParsedLogic.
func (e *Engine) runFallback(ctx context.Context, field *schema.FieldInfo, parsed *classify.ParsedLogic) *classify.ParsedLogic {
	if e.fallback == nil {
		return nil
	}
	sel, err := e.fallback.Classify(ctx, field.Logic, llm.FieldContext{
		FieldID:   field.ID,
		Name:      field.Name,
		FieldType: field.FieldType,
		PanelName: field.PanelName,
	})
	if err != nil {
		e.logger.Warnw("fallback classification failed", "field", field.Name, "error", err)
		return nil
	}
	if sel == nil || sel.Confidence < e.minConf || sel.ActionType == "" || sel.ActionType == "NONE" {
		return nil
	}

	refined := *parsed
	refined.Confidence = sel.Confidence
	if refined.DocumentClass == classify.DocUnknown {
		refined.DocumentClass = classify.DocumentClass(sel.DocumentClass)
	}
	switch rules.ActionType(sel.ActionType) {
	case rules.ActionMakeVisible:
		refined.MakeVisible = true
	case rules.ActionMakeInvisible:
		refined.MakeInvisible = true
	case rules.ActionMakeMandatory:
		refined.MakeMandatory = true
	case rules.ActionMakeNonMandatory:
		refined.MakeNonMandatory = true
	case rules.ActionMakeDisabled:
		refined.Disable = true
	case rules.ActionVerify:
		refined.IsVerify = true
	case rules.ActionOCR:
		refined.IsOCR = true
	case rules.ActionExtDropdown:
		refined.ExtDropdown = true
	case rules.ActionExtValue:
		refined.ExtValue = true
	case rules.ActionCopyTo:
		refined.IsCopy = true
	default:
		return nil
	}
	e.report.ClassifiedBy.Fallback++
	return &refined
}

// buildCrossValidations emits conventional cross-field consistency checks.
// Today that is the PAN-embedded-in-GSTIN check, added once when the
// document carries VERIFY rules for both.
func (e *Engine) buildCrossValidations(generated []*rules.GeneratedRule) []*rules.GeneratedRule {
	var pan, gstin *schema.FieldInfo
	for _, r := range generated {
		if r.ActionType != rules.ActionVerify || len(r.SourceIDs) == 0 {
			continue
		}
		switch r.SourceType {
		case rules.VerifySourceType(classify.DocPAN):
			if pan == nil {
				pan = e.registry.ByID(r.SourceIDs[0])
			}
		case rules.VerifySourceType(classify.DocGSTIN):
			if gstin == nil {
				gstin = e.registry.ByID(r.SourceIDs[0])
			}
		}
	}
	if pan == nil || gstin == nil {
		return nil
	}
	r := e.builder.BuildCrossValidation(pan, gstin,
		"PAN does not match the PAN embedded in the GSTIN")
	if r == nil {
		return nil
	}
	return []*rules.GeneratedRule{r}
}
