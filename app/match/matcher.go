package match

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sievekit/social-sieve/app/post"
	"github.com/sievekit/social-sieve/app/rules"
)

// RuleMatch records one keyword hit by one rule against a post.
type RuleMatch struct {
	RuleID   int64   `json:"rule_id"`
	Keyword  string  `json:"keyword"`
	Category string  `json:"category"`
	Priority int     `json:"priority"`
	Score    float64 `json:"score"`
}

// Matcher evaluates posts against a rule snapshot. It is stateless and safe
// for concurrent use.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Evaluate returns the matches for the post, one entry per (rule, keyword)
// hit, in rule evaluation order. A post matching no rule yields nil.
func (m *Matcher) Evaluate(p post.Post, set *rules.Set) []RuleMatch {
	var matches []RuleMatch

	for _, rule := range set.RulesFor(p.Platform) {
		keywords := m.matchRule(p.Content, rule)
		if len(keywords) == 0 {
			continue
		}
		if !m.passesThresholds(rule.Rule, p) {
			continue
		}

		for _, kw := range keywords {
			matches = append(matches, RuleMatch{
				RuleID:   rule.ID,
				Keyword:  kw,
				Category: rule.Category,
				Priority: rule.Priority,
				Score:    score(p.Content, kw, rule.CaseSensitive),
			})
		}
	}

	return matches
}

// matchRule returns the keywords of the rule that hit the content, honoring
// the rule's match type. Exclusions always win: any exclude keyword present
// in the content suppresses the rule entirely.
func (m *Matcher) matchRule(content string, rule rules.CompiledRule) []string {
	text := content
	keywords := rule.Keywords
	excludes := rule.ExcludeKeywords
	if !rule.CaseSensitive {
		text = fold(content)
		keywords = foldAll(rule.Keywords)
		excludes = foldAll(rule.ExcludeKeywords)
	}

	for _, ekw := range excludes {
		if strings.Contains(text, ekw) {
			return nil
		}
	}

	switch rule.MatchType {
	case rules.MatchAny:
		var matched []string
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		return matched

	case rules.MatchAll:
		for _, kw := range keywords {
			if !strings.Contains(text, kw) {
				return nil
			}
		}
		return keywords

	case rules.MatchExact:
		trimmed := strings.TrimSpace(text)
		var matched []string
		for _, kw := range keywords {
			if kw == trimmed {
				matched = append(matched, kw)
			}
		}
		return matched

	case rules.MatchRegex:
		// Report keywords with the same folding as the other match types.
		var matched []string
		for i, pattern := range rule.Patterns {
			if pattern.MatchString(content) {
				matched = append(matched, keywords[i])
			}
		}
		return matched
	}

	return nil
}

func (m *Matcher) passesThresholds(rule rules.Rule, p post.Post) bool {
	if rule.EngagementThreshold.Set() && p.EngagementScore < int(rule.EngagementThreshold) {
		return false
	}
	if rule.FollowerThreshold.Set() && p.FollowerCount < int(rule.FollowerThreshold) {
		return false
	}
	return true
}

// score ranks a keyword hit by frequency and content length. Informational
// only, never a gate.
func score(content, keyword string, caseSensitive bool) float64 {
	text := content
	kw := keyword
	if !caseSensitive {
		text = fold(content)
		kw = fold(keyword)
	}

	count := strings.Count(text, kw)
	lengthFactor := float64(len(content)) / 100
	if lengthFactor > 5 {
		lengthFactor = 5
	}
	return float64(count)*2 + lengthFactor
}

// MatchedKeywords returns the union of matched keywords across all matches,
// preserving first-seen order.
func MatchedKeywords(matches []RuleMatch) []string {
	seen := make(map[string]bool, len(matches))
	var keywords []string
	for _, m := range matches {
		if !seen[m.Keyword] {
			seen[m.Keyword] = true
			keywords = append(keywords, m.Keyword)
		}
	}
	return keywords
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func foldAll(ss []string) []string {
	folded := make([]string, len(ss))
	for i, s := range ss {
		folded[i] = fold(s)
	}
	return folded
}
