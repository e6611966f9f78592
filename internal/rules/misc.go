package rules

import "github.com/a3tai/formfill-rulegen/internal/schema"

// BuildCopyTo emits a client-side copy of one field's value into another,
// for "same as X" logic.
func (b *Builder) BuildCopyTo(source, destination *schema.FieldInfo) *GeneratedRule {
	if source == nil || destination == nil || source.ID == destination.ID {
		return nil
	}
	return b.base(ActionCopyTo, []int{source.ID}, []int{destination.ID}, ProcessingClient)
}

// BuildCrossValidation emits a two-field consistency check, e.g. the PAN
// embedded in a GSTIN. Failure reports but never blocks the rest of the
// form, so onStatusFail is CONTINUE.
func (b *Builder) BuildCrossValidation(fieldA, fieldB *schema.FieldInfo, errorMessage string) *GeneratedRule {
	if fieldA == nil || fieldB == nil || fieldA.ID == fieldB.ID {
		return nil
	}
	rule := b.base(ActionValidation, []int{fieldA.ID, fieldB.ID}, nil, ProcessingServer)
	rule.OnStatusFail = "CONTINUE"
	rule.Params = map[string]string{"errorMessage": errorMessage}
	return rule
}
