package post

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizer_Tweet(t *testing.T) {
	normalizer := NewNormalizer()

	raw := json.RawMessage(`{
		"id": "1234567890",
		"text": "Ethereum just launched a new defi protocol",
		"created_at": "2024-03-01T12:30:00Z",
		"author_id": "42",
		"lang": "en",
		"public_metrics": {"like_count": 10, "retweet_count": 4, "reply_count": 3, "quote_count": 1},
		"author": {"username": "chainwatcher", "verified": true, "public_metrics": {"followers_count": 5000}}
	}`)

	p, err := normalizer.Run(PlatformTwitter, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if p.Platform != PlatformTwitter || p.ExternalID != "1234567890" {
		t.Errorf("Unexpected identity: %s/%s", p.Platform, p.ExternalID)
	}
	if p.AuthorUsername != "chainwatcher" || p.FollowerCount != 5000 {
		t.Errorf("Unexpected author: %s (%d followers)", p.AuthorUsername, p.FollowerCount)
	}
	if p.URL != "https://twitter.com/chainwatcher/status/1234567890" {
		t.Errorf("Unexpected URL: %s", p.URL)
	}

	// likes + retweets*3 + replies*2
	if p.EngagementScore != 10+4*3+3*2 {
		t.Errorf("Expected engagement score 28, got %d", p.EngagementScore)
	}
	if p.Engagement["quotes"] != 1 {
		t.Errorf("Expected 1 quote in engagement map, got %d", p.Engagement["quotes"])
	}

	expected := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if !p.PublishedAt.Equal(expected) {
		t.Errorf("Expected published at %v, got %v", expected, p.PublishedAt)
	}
	if p.Metadata["user_verified"] != true {
		t.Errorf("Expected user_verified metadata, got %v", p.Metadata["user_verified"])
	}
}

func TestNormalizer_TweetMissingFields(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name string
		raw  string
	}{
		{"missing id", `{"text": "hello", "created_at": "2024-03-01T12:30:00Z"}`},
		{"missing text", `{"id": "1", "created_at": "2024-03-01T12:30:00Z"}`},
		{"bad timestamp", `{"id": "1", "text": "hello", "created_at": "yesterday"}`},
		{"not json", `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := normalizer.Run(PlatformTwitter, json.RawMessage(tt.raw)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestNormalizer_RedditPost(t *testing.T) {
	normalizer := NewNormalizer()

	raw := json.RawMessage(`{
		"id": "abc123",
		"title": "New exploit found",
		"selftext": "Details about the smart contract vulnerability",
		"author": "redditor",
		"created_utc": 1709294400,
		"permalink": "/r/ethereum/comments/abc123/new_exploit_found/",
		"score": 120,
		"upvote_ratio": 0.94,
		"num_comments": 30,
		"subreddit": "ethereum"
	}`)

	p, err := normalizer.Run(PlatformReddit, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectedContent := "New exploit found\n\nDetails about the smart contract vulnerability"
	if p.Content != expectedContent {
		t.Errorf("Unexpected content: %q", p.Content)
	}
	if p.URL != "https://reddit.com/r/ethereum/comments/abc123/new_exploit_found/" {
		t.Errorf("Unexpected URL: %s", p.URL)
	}

	// score + comments*2
	if p.EngagementScore != 120+30*2 {
		t.Errorf("Expected engagement score 180, got %d", p.EngagementScore)
	}
	if p.Metadata["subreddit"] != "ethereum" {
		t.Errorf("Expected subreddit metadata, got %v", p.Metadata["subreddit"])
	}
}

func TestNormalizer_RedditNegativeScore(t *testing.T) {
	normalizer := NewNormalizer()

	raw := json.RawMessage(`{
		"id": "abc",
		"title": "Downvoted",
		"author": "x",
		"created_utc": 1709294400,
		"permalink": "/r/test/abc",
		"score": -40,
		"num_comments": 5
	}`)

	p, err := normalizer.Run(PlatformReddit, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Negative score clamps to zero before weighting.
	if p.EngagementScore != 10 {
		t.Errorf("Expected engagement score 10, got %d", p.EngagementScore)
	}
	if p.Engagement["score"] != -40 {
		t.Errorf("Raw score should be preserved, got %d", p.Engagement["score"])
	}
}

func TestNormalizer_RedditDeletedAuthor(t *testing.T) {
	normalizer := NewNormalizer()

	raw := json.RawMessage(`{"id": "abc", "title": "t", "created_utc": 1709294400, "permalink": "/r/x/abc"}`)
	p, err := normalizer.Run(PlatformReddit, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if p.AuthorUsername != "[deleted]" {
		t.Errorf("Expected [deleted] author, got %q", p.AuthorUsername)
	}
}

func TestNormalizer_TelegramMessage(t *testing.T) {
	normalizer := NewNormalizer()

	raw := json.RawMessage(`{
		"message_id": 991,
		"date": 1709294400,
		"text": "bitcoin hits new high",
		"views": 1250,
		"forwards": 17,
		"chat": {"title": "Crypto News", "username": "cryptonews"}
	}`)

	p, err := normalizer.Run(PlatformTelegram, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if p.ExternalID != "991" {
		t.Errorf("Expected external id '991', got %q", p.ExternalID)
	}
	if p.AuthorUsername != "Crypto News" {
		t.Errorf("Expected channel title as author, got %q", p.AuthorUsername)
	}
	if p.URL != "https://t.me/cryptonews/991" {
		t.Errorf("Unexpected URL: %s", p.URL)
	}
	if p.EngagementScore != 125 {
		t.Errorf("Expected engagement score 125, got %d", p.EngagementScore)
	}
}

func TestNormalizer_UnsupportedPlatform(t *testing.T) {
	normalizer := NewNormalizer()
	if _, err := normalizer.Run("mastodon", json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for unsupported platform")
	}
}

func TestValidPlatform(t *testing.T) {
	for _, platform := range []string{PlatformTwitter, PlatformReddit, PlatformTelegram} {
		if !ValidPlatform(platform) {
			t.Errorf("Expected %s to be valid", platform)
		}
	}
	if ValidPlatform("mastodon") {
		t.Error("Expected mastodon to be invalid")
	}
}
