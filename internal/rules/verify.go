package rules

import (
	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/classify"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// BuildVerify assembles a server-side VERIFY rule for a triggering value
// field. The destination array comes from the catalog entry's ordinal
// layout; compound-key archetypes (bank IFSC + account) pick up their extra
// source fields by resolving the entry's remaining source names. A nil
// return means the rule could not be grounded and must be skipped.
func (b *Builder) BuildVerify(parsed *classify.ParsedLogic, field *schema.FieldInfo) *GeneratedRule {
	if parsed.IsDestinationOnly {
		return nil
	}
	sourceType := VerifySourceType(parsed.DocumentClass)
	if sourceType == "" {
		b.logger.Debugw("verify without document class", "field", field.Name)
		return nil
	}

	entry := b.catalog.FindBySourceAndAction(sourceType, string(ActionVerify))
	if entry == nil {
		// No archetype in the catalog: emit a bare verify so the form
		// still gets the button, with no positional destinations.
		rule := b.base(ActionVerify, []int{field.ID}, nil, ProcessingServer)
		rule.SourceType = sourceType
		rule.Button = "Verify"
		return rule
	}

	sourceIDs := []int{field.ID}
	if len(entry.SourceFields.Fields) > 1 {
		sourceIDs = b.resolveCompoundSources(entry.SourceFields.Fields, field)
	}

	destIDs := b.catalog.BuildDestinationIDs(entry.ID, b.resolveDestinationMap(entry, field))

	rule := b.base(ActionVerify, sourceIDs, destIDs, ProcessingServer)
	rule.SourceType = sourceType
	rule.Button = entry.Button
	if rule.Button == "" {
		rule.Button = "Verify"
	}
	return rule
}

// resolveCompoundSources resolves a multi-source archetype's inputs in
// ordinal order. The triggering field claims the first unresolved slot; the
// rest resolve through the registry. Slots that stay unresolved are dropped
// so the source list never carries sentinel ids.
func (b *Builder) resolveCompoundSources(sourceFields []catalog.SchemaField, primary *schema.FieldInfo) []int {
	var ids []int
	primaryUsed := false
	for _, sf := range sourceFields {
		if f := b.registry.Match(sf.Name); f != nil && f.ID != primary.ID {
			ids = append(ids, f.ID)
			continue
		}
		if !primaryUsed {
			ids = append(ids, primary.ID)
			primaryUsed = true
		}
	}
	if !primaryUsed {
		ids = append([]int{primary.ID}, ids...)
	}
	return ids
}
