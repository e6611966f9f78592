// Package registry resolves natural-language field references, as they
// appear inside another field's logic text, to concrete form fields.
//
// Resolution runs a ladder of increasingly lenient strategies: exact match,
// normalized match, edit-distance ratio, then token overlap. A miss at every
// stage means the reference stays unresolved and the caller skips the rule
// candidate; free-text references are unreliable by nature and a miss is
// never an error.
package registry

import (
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// DefaultFuzzyThreshold is the minimum similarity ratio for a fuzzy match.
const DefaultFuzzyThreshold = 0.80

// Direction selects which side of a field findNearby scans.
type Direction int

const (
	After Direction = iota
	Before
)

// Registry indexes all fields of one document by exact name, normalized
// name, and variable name. Built once per extraction run and read-only
// afterwards.
type Registry struct {
	fields     []*schema.FieldInfo
	byName     map[string]*schema.FieldInfo
	byVariable map[string]*schema.FieldInfo
	byNormal   map[string]*schema.FieldInfo
	byID       map[int]*schema.FieldInfo
	ordered    []*schema.FieldInfo // sorted by FormOrder
	threshold  float64
	logger     *zap.SugaredLogger
}

// New builds a registry over the given fields.
func New(fields []*schema.FieldInfo, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Registry{
		fields:     fields,
		byName:     make(map[string]*schema.FieldInfo, len(fields)),
		byVariable: make(map[string]*schema.FieldInfo, len(fields)),
		byNormal:   make(map[string]*schema.FieldInfo, len(fields)),
		byID:       make(map[int]*schema.FieldInfo, len(fields)),
		threshold:  DefaultFuzzyThreshold,
		logger:     logger,
	}
	for _, f := range fields {
		// First field wins on duplicate names; display names are not
		// guaranteed unique in the source document.
		if _, dup := r.byName[f.Name]; !dup {
			r.byName[f.Name] = f
		}
		if f.VariableName != "" {
			if _, dup := r.byVariable[f.VariableName]; !dup {
				r.byVariable[f.VariableName] = f
			}
		}
		norm := Normalize(f.Name)
		if _, dup := r.byNormal[norm]; !dup && norm != "" {
			r.byNormal[norm] = f
		}
		r.byID[f.ID] = f
	}

	r.ordered = make([]*schema.FieldInfo, len(fields))
	copy(r.ordered, fields)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].FormOrder < r.ordered[j].FormOrder
	})
	return r
}

// Normalize lowercases, strips non-alphanumerics, and collapses whitespace.
func Normalize(name string) string {
	var b strings.Builder
	lastSpace := false
	for _, c := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			b.WriteRune(c)
			lastSpace = false
		case unicode.IsSpace(c):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// ByID returns the field with the given id, or nil.
func (r *Registry) ByID(id int) *schema.FieldInfo {
	return r.byID[id]
}

// Fields returns all indexed fields in document order.
func (r *Registry) Fields() []*schema.FieldInfo {
	return r.fields
}

// MatchExact matches on exact display name or variable name.
func (r *Registry) MatchExact(name string) *schema.FieldInfo {
	if f, ok := r.byName[name]; ok {
		return f
	}
	if f, ok := r.byVariable[name]; ok {
		return f
	}
	return nil
}

// MatchNormalized matches after normalization of both sides.
func (r *Registry) MatchNormalized(name string) *schema.FieldInfo {
	norm := Normalize(name)
	if norm == "" {
		return nil
	}
	if f, ok := r.byNormal[norm]; ok {
		return f
	}
	return nil
}

// MatchFuzzy returns the best edit-distance-ratio match over all normalized
// names, but only when the best score reaches the registry threshold.
func (r *Registry) MatchFuzzy(name string) *schema.FieldInfo {
	norm := Normalize(name)
	if norm == "" {
		return nil
	}

	var best *schema.FieldInfo
	bestScore := 0.0
	for _, f := range r.fields {
		score := similarityRatio(norm, Normalize(f.Name))
		if score > bestScore {
			bestScore = score
			best = f
		}
	}
	if bestScore < r.threshold {
		return nil
	}
	return best
}

// MatchTokenOverlap tokenizes both sides on whitespace and returns the
// candidate sharing the most tokens, requiring an overlap of at least
// min(2, len(reference tokens)).
func (r *Registry) MatchTokenOverlap(name string) *schema.FieldInfo {
	refTokens := tokenSet(Normalize(name))
	if len(refTokens) == 0 {
		return nil
	}
	required := 2
	if len(refTokens) < required {
		required = len(refTokens)
	}

	var best *schema.FieldInfo
	bestOverlap := 0
	for _, f := range r.fields {
		overlap := 0
		for token := range tokenSet(Normalize(f.Name)) {
			if refTokens[token] {
				overlap++
			}
		}
		if overlap >= required && overlap > bestOverlap {
			bestOverlap = overlap
			best = f
		}
	}
	return best
}

// Match runs the full resolution ladder: exact, normalized, fuzzy, token
// overlap. Returns nil when every stage misses.
func (r *Registry) Match(name string) *schema.FieldInfo {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if f := r.MatchExact(name); f != nil {
		return f
	}
	if f := r.MatchNormalized(name); f != nil {
		return f
	}
	if f := r.MatchFuzzy(name); f != nil {
		return f
	}
	if f := r.MatchTokenOverlap(name); f != nil {
		r.logger.Debugw("field reference resolved by token overlap", "reference", name, "field", f.Name)
		return f
	}
	r.logger.Debugw("unresolved field reference", "reference", name)
	return nil
}

// FindNearby returns up to count fields adjacent to the given field in
// FormOrder, scanning forward or backward. Used when no explicit reference
// exists but an implicit "next N fields" convention applies.
func (r *Registry) FindNearby(fieldID, count int, dir Direction) []*schema.FieldInfo {
	idx := -1
	for i, f := range r.ordered {
		if f.ID == fieldID {
			idx = i
			break
		}
	}
	if idx < 0 || count <= 0 {
		return nil
	}

	var nearby []*schema.FieldInfo
	if dir == After {
		for i := idx + 1; i < len(r.ordered) && len(nearby) < count; i++ {
			nearby = append(nearby, r.ordered[i])
		}
	} else {
		for i := idx - 1; i >= 0 && len(nearby) < count; i-- {
			nearby = append(nearby, r.ordered[i])
		}
	}
	return nearby
}

// BestAmong returns the candidate whose normalized name is most similar to
// the reference, restricted to the given candidates, or nil when no score
// reaches the threshold. Used to resolve catalog destination names against a
// locality window instead of the whole document.
func (r *Registry) BestAmong(name string, candidates []*schema.FieldInfo, threshold float64) *schema.FieldInfo {
	norm := Normalize(name)
	if norm == "" {
		return nil
	}
	var best *schema.FieldInfo
	bestScore := 0.0
	for _, f := range candidates {
		score := similarityRatio(norm, Normalize(f.Name))
		if score > bestScore {
			bestScore = score
			best = f
		}
	}
	if bestScore < threshold {
		return nil
	}
	return best
}

func tokenSet(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		tokens[t] = true
	}
	return tokens
}
