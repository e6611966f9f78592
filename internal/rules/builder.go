package rules

import (
	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/classify"
	"github.com/a3tai/formfill-rulegen/internal/registry"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// ruleUser is stamped on generated rules for audit trails downstream.
const ruleUser = "SYSTEM"

// Conventional catalog source types per document class. VERIFY archetypes
// key on the value field, OCR archetypes on the uploaded image.
var verifySourceTypes = map[classify.DocumentClass]string{
	classify.DocPAN:     "PAN_NUMBER",
	classify.DocGSTIN:   "GSTIN_NUMBER",
	classify.DocBank:    "BANK_ACCOUNT_NUMBER",
	classify.DocMSME:    "MSME_NUMBER",
	classify.DocCIN:     "CIN_NUMBER",
	classify.DocAadhaar: "AADHAAR_NUMBER",
}

var ocrSourceTypes = map[classify.DocumentClass]string{
	classify.DocPAN:     "PAN_IMAGE",
	classify.DocGSTIN:   "GSTIN_IMAGE",
	classify.DocBank:    "CHEQUE_IMAGE",
	classify.DocMSME:    "MSME_IMAGE",
	classify.DocCIN:     "CIN_IMAGE",
	classify.DocAadhaar: "AADHAAR_IMAGE",
}

// VerifySourceType returns the conventional catalog source type for a
// document class's VERIFY archetype, or "".
func VerifySourceType(class classify.DocumentClass) string {
	return verifySourceTypes[class]
}

// OCRSourceType returns the conventional catalog source type for a document
// class's OCR archetype, or "".
func OCRSourceType(class classify.DocumentClass) string {
	return ocrSourceTypes[class]
}

// HasVerifyCounterpart reports whether OCR rules for this document class
// conventionally chain into a VERIFY rule. Aadhaar front/back OCR have none.
func HasVerifyCounterpart(class classify.DocumentClass) bool {
	switch class {
	case classify.DocPAN, classify.DocGSTIN, classify.DocBank,
		classify.DocMSME, classify.DocCIN:
		return true
	}
	return false
}

// Builder assembles canonical rule records from classifier output. One
// builder serves a whole extraction run; it owns the run's id generator.
type Builder struct {
	ids      *IDGenerator
	registry *registry.Registry
	catalog  *catalog.Catalog
	logger   *zap.SugaredLogger
}

// NewBuilder wires a builder for one run.
func NewBuilder(ids *IDGenerator, reg *registry.Registry, cat *catalog.Catalog, logger *zap.SugaredLogger) *Builder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Builder{ids: ids, registry: reg, catalog: cat, logger: logger}
}

// base creates a rule with a fresh id and all default flags.
func (b *Builder) base(action ActionType, sourceIDs, destIDs []int, processing string) *GeneratedRule {
	if sourceIDs == nil {
		sourceIDs = []int{}
	}
	if destIDs == nil {
		destIDs = []int{}
	}
	return &GeneratedRule{
		ID:                 b.ids.Next(),
		CreateUser:         ruleUser,
		UpdateUser:         ruleUser,
		ActionType:         action,
		ProcessingType:     processing,
		SourceIDs:          sourceIDs,
		DestinationIDs:     destIDs,
		PostTriggerRuleIDs: []int{},
		ExecuteOnFill:      true,
	}
}

// resolveDestinationMap maps a catalog entry's destination field names to
// concrete field ids, preferring a locality window around the anchor field
// before falling back to whole-document resolution. Unresolvable names are
// simply absent from the map.
func (b *Builder) resolveDestinationMap(entry *catalog.Entry, anchor *schema.FieldInfo) map[string]int {
	near := b.registry.FindNearby(anchor.ID, 10, registry.After)
	near = append(near, b.registry.FindNearby(anchor.ID, 4, registry.Before)...)

	mappings := make(map[string]int)
	for _, destField := range entry.DestinationFields.Fields {
		if f := b.registry.BestAmong(destField.Name, near, 0.60); f != nil {
			mappings[destField.Name] = f.ID
			continue
		}
		if f := b.registry.Match(destField.Name); f != nil {
			mappings[destField.Name] = f.ID
		}
	}
	return mappings
}
