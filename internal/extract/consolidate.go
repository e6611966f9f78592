package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/a3tai/formfill-rulegen/internal/rules"
)

// consolidate reduces the generated rule list: groupable toggle rules that
// share a controlling field and condition are merged into one
// multi-destination rule, VERIFY/OCR variants for the same source collapse
// to the best-populated one, and exact duplicates are dropped. Total over
// any input, including empty lists, and a fixed point on its own output.
func consolidate(ruleList []*rules.GeneratedRule) []*rules.GeneratedRule {
	merged := mergeGroupable(ruleList)
	merged = dedupePositional(merged)
	return dropExactDuplicates(merged)
}

// mergeGroupable merges visibility/mandatory/disable/enable rules keyed by
// (actionType, sortedSourceIds, condition, sortedConditionalValues). The
// earliest-id rule of each group survives and absorbs every destination.
func mergeGroupable(ruleList []*rules.GeneratedRule) []*rules.GeneratedRule {
	type group struct {
		keeper *rules.GeneratedRule
		dest   map[int]bool
	}
	groups := make(map[string]*group)
	var out []*rules.GeneratedRule

	for _, r := range ruleList {
		if !r.ActionType.IsGroupable() {
			out = append(out, r)
			continue
		}
		key := groupKey(r)
		g, ok := groups[key]
		if !ok {
			g = &group{keeper: r, dest: make(map[int]bool)}
			groups[key] = g
			out = append(out, r)
		}
		if r.ID < g.keeper.ID {
			// Stable input order makes this rare, but the earliest id
			// must represent the group.
			replaceRule(out, g.keeper, r)
			g.keeper = r
		}
		for _, id := range r.DestinationIDs {
			g.dest[id] = true
		}
	}

	for _, g := range groups {
		g.keeper.DestinationIDs = sortedKeys(g.dest)
	}
	return out
}

// dedupePositional deduplicates the positional families (VERIFY/OCR) keyed
// by (actionType, sourceType, sortedSourceIds), keeping the variant with the
// most populated destination slots. Non-positional rules pass through
// untouched: two COPY_TO rules from one source to different destinations are
// distinct rules, not variants. postTriggerRuleIds referencing a removed
// variant are remapped onto the survivor.
func dedupePositional(ruleList []*rules.GeneratedRule) []*rules.GeneratedRule {
	best := make(map[string]*rules.GeneratedRule)
	for _, r := range ruleList {
		if !r.ActionType.IsPositional() {
			continue
		}
		key := dedupeKey(r)
		current, ok := best[key]
		if !ok || populatedSlots(r) > populatedSlots(current) {
			best[key] = r
		}
	}

	remap := make(map[int]int)
	var out []*rules.GeneratedRule
	for _, r := range ruleList {
		if !r.ActionType.IsPositional() {
			out = append(out, r)
			continue
		}
		keeper := best[dedupeKey(r)]
		if keeper == r {
			out = append(out, r)
			continue
		}
		remap[r.ID] = keeper.ID
	}

	if len(remap) > 0 {
		for _, r := range out {
			for i, id := range r.PostTriggerRuleIDs {
				if kept, moved := remap[id]; moved {
					r.PostTriggerRuleIDs[i] = kept
				}
			}
			r.PostTriggerRuleIDs = uniqueInts(r.PostTriggerRuleIDs)
		}
	}
	return out
}

// dropExactDuplicates removes rules that are byte-identical after
// serialization, ignoring only the id.
func dropExactDuplicates(ruleList []*rules.GeneratedRule) []*rules.GeneratedRule {
	seen := make(map[string]bool)
	var out []*rules.GeneratedRule
	for _, r := range ruleList {
		clone := *r
		clone.ID = 0
		raw, err := json.Marshal(&clone)
		if err != nil {
			out = append(out, r)
			continue
		}
		key := string(raw)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func groupKey(r *rules.GeneratedRule) string {
	return fmt.Sprintf("%s|%v|%s|%s",
		r.ActionType,
		sortedCopy(r.SourceIDs),
		r.Condition,
		strings.Join(sortedStrings(r.ConditionalValues), ","),
	)
}

func dedupeKey(r *rules.GeneratedRule) string {
	return fmt.Sprintf("%s|%s|%v", r.ActionType, r.SourceType, sortedCopy(r.SourceIDs))
}

func populatedSlots(r *rules.GeneratedRule) int {
	n := 0
	for _, id := range r.DestinationIDs {
		if id != rules.NoField {
			n++
		}
	}
	return n
}

func replaceRule(list []*rules.GeneratedRule, old, repl *rules.GeneratedRule) {
	for i, r := range list {
		if r == old {
			list[i] = repl
			return
		}
	}
}

func sortedCopy(ids []int) []int {
	out := append([]int{}, ids...)
	sort.Ints(out)
	return out
}

func sortedStrings(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func uniqueInts(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
