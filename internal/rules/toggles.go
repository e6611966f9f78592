package rules

import "github.com/a3tai/formfill-rulegen/internal/schema"

// BuildConditionalToggle emits the paired rule set for the visibility and
// mandatory families: the positive action with condition IN plus its inverse
// with NOT_IN, both sharing source, destinations, and trigger values. When
// paired is false only the named direction is emitted, for logic that
// explicitly requests a single direction.
func (b *Builder) BuildConditionalToggle(action ActionType, source *schema.FieldInfo, destIDs []int, values []string, paired bool) []*GeneratedRule {
	if source == nil || len(destIDs) == 0 || len(values) == 0 {
		return nil
	}

	positive := b.base(action, []int{source.ID}, append([]int{}, destIDs...), ProcessingClient)
	positive.Condition = ConditionIn
	positive.ConditionalValues = append([]string{}, values...)
	positive.ConditionValueType = "STRING"

	out := []*GeneratedRule{positive}
	inverse := action.Inverse()
	if !paired || inverse == "" {
		return out
	}

	negative := b.base(inverse, []int{source.ID}, append([]int{}, destIDs...), ProcessingClient)
	negative.Condition = ConditionNotIn
	negative.ConditionalValues = append([]string{}, values...)
	negative.ConditionValueType = "STRING"
	return append(out, negative)
}

// BuildDisable emits the conventional disable rule: a designated control
// field as source, every affected field as destination, and the
// "always true unless toggled" NOT_IN ["Disable"] predicate.
func (b *Builder) BuildDisable(control *schema.FieldInfo, destIDs []int) *GeneratedRule {
	if control == nil || len(destIDs) == 0 {
		return nil
	}
	rule := b.base(ActionMakeDisabled, []int{control.ID}, append([]int{}, destIDs...), ProcessingClient)
	rule.Condition = ConditionNotIn
	rule.ConditionalValues = []string{"Disable"}
	rule.ConditionValueType = "STRING"
	return rule
}
