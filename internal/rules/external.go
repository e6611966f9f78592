package rules

import (
	"strings"

	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// BuildExternalDropdown emits the rule binding a dropdown-family field to an
// external lookup table. The table identifier conventionally derives from
// the field name.
func (b *Builder) BuildExternalDropdown(field *schema.FieldInfo) *GeneratedRule {
	if field == nil || !field.IsDropdownFamily() {
		return nil
	}
	rule := b.base(ActionExtDropdown, []int{field.ID}, nil, ProcessingServer)
	rule.SourceType = SourceFormFillDropdown
	rule.Searchable = true
	rule.Params = map[string]string{"lookupTable": lookupTableID(field.Name)}
	return rule
}

// BuildExternalValue emits the rule sourcing a single field's value from an
// external reference table.
func (b *Builder) BuildExternalValue(field *schema.FieldInfo) *GeneratedRule {
	if field == nil {
		return nil
	}
	rule := b.base(ActionExtValue, []int{field.ID}, nil, ProcessingServer)
	rule.SourceType = SourceExternalDataValue
	rule.Params = map[string]string{"lookupTable": lookupTableID(field.Name)}
	return rule
}

// lookupTableID converts a display name into the upper-snake identifier the
// external lookup service keys on.
func lookupTableID(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, c := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			b.WriteRune(c)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
