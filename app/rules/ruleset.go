package rules

import (
	"log/slog"
	"regexp"
	"sort"
)

// CompiledRule is a Rule with its regex keywords compiled. For match types
// other than regex, Patterns is nil.
type CompiledRule struct {
	Rule
	Patterns []*regexp.Regexp
}

// Set is an immutable snapshot of active keyword rules, compiled once and
// safe for concurrent readers.
type Set struct {
	rules []CompiledRule
}

// NewSet builds a snapshot from the given rules. Inactive rules and rules
// without keywords are dropped. A regex rule whose pattern fails to compile
// is dropped with a warning; one bad rule never aborts the load.
func NewSet(rs []Rule) *Set {
	compiled := make([]CompiledRule, 0, len(rs))

	for _, r := range rs {
		if !r.Active {
			continue
		}
		if len(r.Keywords) == 0 {
			slog.Warn("Skipping rule without keywords", "rule", r.Name, "id", r.ID)
			continue
		}
		if !ValidMatchType(r.MatchType) {
			slog.Warn("Skipping rule with unknown match type", "rule", r.Name, "id", r.ID, "match_type", string(r.MatchType))
			continue
		}

		cr := CompiledRule{Rule: r}
		if r.MatchType == MatchRegex {
			patterns, err := compilePatterns(r)
			if err != nil {
				slog.Warn("Skipping rule with invalid pattern", "rule", r.Name, "id", r.ID, "error", err)
				continue
			}
			cr.Patterns = patterns
		}
		compiled = append(compiled, cr)
	}

	// Deterministic evaluation order: priority desc, id asc as tie-break.
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Priority != compiled[j].Priority {
			return compiled[i].Priority > compiled[j].Priority
		}
		return compiled[i].ID < compiled[j].ID
	})

	return &Set{rules: compiled}
}

func compilePatterns(r Rule) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		expr := kw
		if !r.CaseSensitive {
			expr = "(?i)" + expr
		}
		p, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// RulesFor returns the rules targeting the given platform, in evaluation
// order.
func (s *Set) RulesFor(platform string) []CompiledRule {
	matched := make([]CompiledRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.AppliesTo(platform) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Rules returns all rules in the snapshot, in evaluation order.
func (s *Set) Rules() []CompiledRule {
	return s.rules
}

func (s *Set) Len() int {
	return len(s.rules)
}
