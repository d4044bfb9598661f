package post

import (
	"time"
)

const (
	PlatformTwitter  = "twitter"
	PlatformReddit   = "reddit"
	PlatformTelegram = "telegram"
)

func ValidPlatform(platform string) bool {
	switch platform {
	case PlatformTwitter, PlatformReddit, PlatformTelegram:
		return true
	}
	return false
}

// Post is the normalized shape shared by all platforms. External fetchers
// hand the pipeline raw platform records; the Normalizer turns them into
// Posts before matching.
type Post struct {
	Platform       string
	ExternalID     string
	AuthorUsername string
	AuthorID       string
	FollowerCount  int
	Content        string
	URL            string
	PublishedAt    time.Time

	// Raw per-platform counters (likes, retweets, score, views, ...).
	Engagement map[string]int

	// Weighted single-number engagement used for threshold gating.
	EngagementScore int

	// Platform-specific extras carried through to storage.
	Metadata map[string]interface{}
}
