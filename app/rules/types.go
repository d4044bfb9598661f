package rules

import (
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type MatchType string

const (
	MatchAny   MatchType = "any"
	MatchAll   MatchType = "all"
	MatchExact MatchType = "exact"
	MatchRegex MatchType = "regex"
)

func ValidMatchType(mt MatchType) bool {
	switch mt {
	case MatchAny, MatchAll, MatchExact, MatchRegex:
		return true
	}
	return false
}

// Threshold is an optional numeric gate on a rule. Zero means "not set".
// Rule sources (YAML files, the keyword_rules table) occasionally carry
// non-numeric threshold values; those are treated as "no threshold" rather
// than failing the rule load.
type Threshold int

func (t *Threshold) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*t = Threshold(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*t = ParseThreshold(s)
	return nil
}

// ParseThreshold converts a stored threshold value to a Threshold,
// falling back to "not set" when the value is not a number.
func ParseThreshold(s string) Threshold {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		slog.Warn("Ignoring non-numeric threshold value", "value", s)
		return 0
	}
	return Threshold(n)
}

func (t Threshold) Set() bool {
	return t > 0
}

type Rule struct {
	ID                  int64     `yaml:"id"`
	Name                string    `yaml:"name"`
	Keywords            []string  `yaml:"keywords"`
	ExcludeKeywords     []string  `yaml:"exclude_keywords"`
	MatchType           MatchType `yaml:"match_type"`
	CaseSensitive       bool      `yaml:"case_sensitive"`
	Platforms           []string  `yaml:"platforms"`
	Category            string    `yaml:"category"`
	Priority            int       `yaml:"priority"`
	EngagementThreshold Threshold `yaml:"engagement_threshold"`
	FollowerThreshold   Threshold `yaml:"follower_threshold"`
	Active              bool      `yaml:"active"`
}

// AppliesTo reports whether the rule targets the given platform.
func (r Rule) AppliesTo(platform string) bool {
	for _, p := range r.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}
