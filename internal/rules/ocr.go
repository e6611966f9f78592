package rules

import (
	"github.com/a3tai/formfill-rulegen/internal/classify"
	"github.com/a3tai/formfill-rulegen/internal/registry"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// BuildOCR assembles a server-side OCR rule for an upload field. With a
// catalog archetype available the destinations use the ordinal array;
// otherwise the rule degrades to the single nearby field that receives the
// extracted value. postTriggerRuleIds stay empty here; the chain linker
// fills them in once the VERIFY rules exist.
func (b *Builder) BuildOCR(parsed *classify.ParsedLogic, upload *schema.FieldInfo) *GeneratedRule {
	if parsed.IsDestinationOnly {
		return nil
	}
	sourceType := OCRSourceType(parsed.DocumentClass)
	if sourceType == "" {
		b.logger.Debugw("ocr without document class", "field", upload.Name)
		return nil
	}

	entry := b.catalog.FindBySourceAndAction(sourceType, string(ActionOCR))
	if entry != nil {
		destIDs := b.catalog.BuildDestinationIDs(entry.ID, b.resolveDestinationMap(entry, upload))
		rule := b.base(ActionOCR, []int{upload.ID}, destIDs, ProcessingServer)
		rule.SourceType = sourceType
		rule.Button = entry.Button
		return rule
	}

	// Catalog miss: fall back to a plain single-destination rule, the
	// extracted value landing in the nearest matching field.
	target := b.inferOCRTarget(parsed, upload)
	if target == nil {
		b.logger.Debugw("no ocr destination resolved", "field", upload.Name)
		return nil
	}
	rule := b.base(ActionOCR, []int{upload.ID}, []int{target.ID}, ProcessingServer)
	rule.SourceType = sourceType
	return rule
}

// inferOCRTarget finds the field receiving the extracted value: an explicit
// reference when the logic names one, otherwise the best document-class
// match among the next few fields after the upload.
func (b *Builder) inferOCRTarget(parsed *classify.ParsedLogic, upload *schema.FieldInfo) *schema.FieldInfo {
	if parsed.SourceFieldName != "" {
		if f := b.registry.Match(parsed.SourceFieldName); f != nil && f.ID != upload.ID {
			return f
		}
	}

	near := b.registry.FindNearby(upload.ID, 3, registry.After)
	if f := b.registry.BestAmong(string(parsed.DocumentClass), near, 0.30); f != nil {
		return f
	}
	if len(near) > 0 {
		return near[0]
	}
	return nil
}
