package database

import (
	"encoding/json"
	"fmt"

	"github.com/sievekit/social-sieve/app/rules"
)

var _ RuleRepository = (*RuleRepositoryImpl)(nil)

// RuleRepositoryImpl reads keyword rules from the keyword_rules table. Rule
// management (create/update/delete) happens elsewhere; this repository only
// serves snapshots to the pipeline.
type RuleRepositoryImpl struct {
	db *DB
}

func NewRuleRepository(db *DB) *RuleRepositoryImpl {
	return &RuleRepositoryImpl{db: db}
}

func (r *RuleRepositoryImpl) GetActiveRules() ([]rules.Rule, error) {
	rows, err := r.db.Query(`
		SELECT id, name, keywords, exclude_keywords, match_type, case_sensitive,
		       platforms, COALESCE(category, ''), priority,
		       COALESCE(engagement_threshold, ''), COALESCE(follower_threshold, ''),
		       active
		FROM keyword_rules
		WHERE active = true
		ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rules: %w", err)
	}
	defer rows.Close()

	var rs []rules.Rule
	for rows.Next() {
		var rule rules.Rule
		var keywords, excludeKeywords, platforms []byte
		var engagementThreshold, followerThreshold string

		err := rows.Scan(
			&rule.ID, &rule.Name, &keywords, &excludeKeywords, &rule.MatchType,
			&rule.CaseSensitive, &platforms, &rule.Category, &rule.Priority,
			&engagementThreshold, &followerThreshold, &rule.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}

		if err := json.Unmarshal(keywords, &rule.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords for rule %d: %w", rule.ID, err)
		}
		if len(excludeKeywords) > 0 {
			if err := json.Unmarshal(excludeKeywords, &rule.ExcludeKeywords); err != nil {
				return nil, fmt.Errorf("failed to decode exclude keywords for rule %d: %w", rule.ID, err)
			}
		}
		if err := json.Unmarshal(platforms, &rule.Platforms); err != nil {
			return nil, fmt.Errorf("failed to decode platforms for rule %d: %w", rule.ID, err)
		}

		rule.EngagementThreshold = rules.ParseThreshold(engagementThreshold)
		rule.FollowerThreshold = rules.ParseThreshold(followerThreshold)

		rs = append(rs, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}

	return rs, nil
}

func (r *RuleRepositoryImpl) GetRuleCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM keyword_rules").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get rule count: %w", err)
	}
	return count, nil
}

func (r *RuleRepositoryImpl) SeedRules(rs []rules.Rule) (int, error) {
	count, err := r.GetRuleCount()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	seeded := 0
	for _, rule := range rs {
		keywords, err := json.Marshal(rule.Keywords)
		if err != nil {
			return seeded, fmt.Errorf("failed to encode keywords for rule %q: %w", rule.Name, err)
		}
		excludeKeywords, err := json.Marshal(rule.ExcludeKeywords)
		if err != nil {
			return seeded, fmt.Errorf("failed to encode exclude keywords for rule %q: %w", rule.Name, err)
		}
		platforms, err := json.Marshal(rule.Platforms)
		if err != nil {
			return seeded, fmt.Errorf("failed to encode platforms for rule %q: %w", rule.Name, err)
		}

		_, err = r.db.Exec(`
			INSERT INTO keyword_rules (
				name, keywords, exclude_keywords, match_type, case_sensitive,
				platforms, category, priority, engagement_threshold,
				follower_threshold, active
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, rule.Name, keywords, excludeKeywords, string(rule.MatchType),
			rule.CaseSensitive, platforms, rule.Category, rule.Priority,
			thresholdValue(rule.EngagementThreshold),
			thresholdValue(rule.FollowerThreshold), rule.Active)

		if err != nil {
			return seeded, fmt.Errorf("failed to seed rule %q: %w", rule.Name, err)
		}
		seeded++
	}

	return seeded, nil
}

func thresholdValue(t rules.Threshold) string {
	if !t.Set() {
		return ""
	}
	return fmt.Sprintf("%d", int(t))
}
