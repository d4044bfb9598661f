package database

import (
	"context"

	"github.com/sievekit/social-sieve/app/rules"
)

type PostRepository interface {
	// CheckSeen reports whether a post with the given dedup key has already
	// been ingested. Honors ctx so a batch deadline can abandon the lookup.
	CheckSeen(ctx context.Context, platform, externalID string) (bool, error)

	// UpsertPost inserts the post or, when the (platform, external_id) key
	// already exists, refreshes only its engagement fields and metadata.
	// Honors ctx so a batch deadline can abandon a hung write.
	UpsertPost(ctx context.Context, post StoredPost) error

	GetRecentPosts(platform string, limit int) ([]StoredPost, error)
	GetPostCount() (int, error)
	GetPostCountByPlatform() (map[string]int, error)
}

type RuleRepository interface {
	// GetActiveRules returns active rules ordered by priority desc, id asc.
	GetActiveRules() ([]rules.Rule, error)

	GetRuleCount() (int, error)

	// SeedRules inserts the given rules when the table is empty. Used to
	// bootstrap from YAML seed files on first start.
	SeedRules(rs []rules.Rule) (int, error)
}
