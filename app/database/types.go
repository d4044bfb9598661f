package database

import (
	"time"
)

// StoredPost is the persisted record for a matched social post, keyed by
// (platform, external_id). Content, author and timestamp are first-write-wins;
// engagement counters and metadata are refreshed on repeat sightings.
type StoredPost struct {
	ID              string // Database UUID
	Platform        string
	ExternalID      string
	AuthorUsername  string
	AuthorID        string
	FollowerCount   int
	Content         string
	URL             string
	PublishedAt     time.Time
	EngagementScore int
	Engagement      map[string]int
	MatchedKeywords []string
	Metadata        map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
