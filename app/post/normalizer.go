package post

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Normalizer converts raw platform records into normalized Posts. Record
// shapes follow the upstream APIs: Twitter v2 tweet objects with the author
// resolved from includes, Reddit listing children, Telegram channel posts.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Run(platform string, raw json.RawMessage) (Post, error) {
	switch platform {
	case PlatformTwitter:
		return n.normalizeTweet(raw)
	case PlatformReddit:
		return n.normalizeRedditPost(raw)
	case PlatformTelegram:
		return n.normalizeTelegramMessage(raw)
	default:
		return Post{}, fmt.Errorf("unsupported platform: %s", platform)
	}
}

type tweetRecord struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	AuthorID      string `json:"author_id"`
	Lang          string `json:"lang"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
	Author struct {
		Username      string `json:"username"`
		Name          string `json:"name"`
		Verified      bool   `json:"verified"`
		PublicMetrics struct {
			FollowersCount int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"author"`
}

func (n *Normalizer) normalizeTweet(raw json.RawMessage) (Post, error) {
	var t tweetRecord
	if err := json.Unmarshal(raw, &t); err != nil {
		return Post{}, fmt.Errorf("failed to decode tweet: %w", err)
	}
	if t.ID == "" {
		return Post{}, fmt.Errorf("tweet record missing id")
	}
	if t.Text == "" {
		return Post{}, fmt.Errorf("tweet %s missing text", t.ID)
	}

	publishedAt, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return Post{}, fmt.Errorf("tweet %s has invalid created_at: %w", t.ID, err)
	}

	username := t.Author.Username
	if username == "" {
		username = "unknown"
	}

	engagement := map[string]int{
		"likes":    t.PublicMetrics.LikeCount,
		"retweets": t.PublicMetrics.RetweetCount,
		"replies":  t.PublicMetrics.ReplyCount,
		"quotes":   t.PublicMetrics.QuoteCount,
	}

	return Post{
		Platform:       PlatformTwitter,
		ExternalID:     t.ID,
		AuthorUsername: username,
		AuthorID:       t.AuthorID,
		FollowerCount:  t.Author.PublicMetrics.FollowersCount,
		Content:        t.Text,
		URL:            fmt.Sprintf("https://twitter.com/%s/status/%s", username, t.ID),
		PublishedAt:    publishedAt.UTC(),
		Engagement:     engagement,
		EngagementScore: t.PublicMetrics.LikeCount +
			t.PublicMetrics.RetweetCount*3 +
			t.PublicMetrics.ReplyCount*2,
		Metadata: map[string]interface{}{
			"language":      t.Lang,
			"user_verified": t.Author.Verified,
		},
	}, nil
}

type redditRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
}

func (n *Normalizer) normalizeRedditPost(raw json.RawMessage) (Post, error) {
	var r redditRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return Post{}, fmt.Errorf("failed to decode reddit post: %w", err)
	}
	if r.ID == "" {
		return Post{}, fmt.Errorf("reddit record missing id")
	}
	if r.Title == "" && r.Selftext == "" {
		return Post{}, fmt.Errorf("reddit post %s has no content", r.ID)
	}
	if r.CreatedUTC <= 0 {
		return Post{}, fmt.Errorf("reddit post %s missing created_utc", r.ID)
	}

	content := r.Title
	if r.Selftext != "" {
		if content != "" {
			content += "\n\n"
		}
		content += r.Selftext
	}

	author := r.Author
	if author == "" {
		author = "[deleted]"
	}

	score := r.Score
	if score < 0 {
		score = 0
	}

	return Post{
		Platform:        PlatformReddit,
		ExternalID:      r.ID,
		AuthorUsername:  author,
		AuthorID:        author,
		Content:         content,
		URL:             "https://reddit.com" + r.Permalink,
		PublishedAt:     time.Unix(int64(r.CreatedUTC), 0).UTC(),
		Engagement:      map[string]int{"score": r.Score, "comments": r.NumComments},
		EngagementScore: score + r.NumComments*2,
		Metadata: map[string]interface{}{
			"subreddit":    r.Subreddit,
			"upvote_ratio": r.UpvoteRatio,
		},
	}, nil
}

type telegramRecord struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
	Views     int    `json:"views"`
	Forwards  int    `json:"forwards"`
	Chat      struct {
		Title    string `json:"title"`
		Username string `json:"username"`
	} `json:"chat"`
}

func (n *Normalizer) normalizeTelegramMessage(raw json.RawMessage) (Post, error) {
	var m telegramRecord
	if err := json.Unmarshal(raw, &m); err != nil {
		return Post{}, fmt.Errorf("failed to decode telegram message: %w", err)
	}
	if m.MessageID == 0 {
		return Post{}, fmt.Errorf("telegram record missing message_id")
	}
	if m.Text == "" {
		return Post{}, fmt.Errorf("telegram message %d has no text", m.MessageID)
	}
	if m.Date <= 0 {
		return Post{}, fmt.Errorf("telegram message %d missing date", m.MessageID)
	}

	id := strconv.FormatInt(m.MessageID, 10)
	channel := m.Chat.Username
	if channel == "" {
		channel = "channel"
	}
	author := m.Chat.Title
	if author == "" {
		author = "Unknown Channel"
	}

	return Post{
		Platform:        PlatformTelegram,
		ExternalID:      id,
		AuthorUsername:  author,
		AuthorID:        m.Chat.Username,
		Content:         m.Text,
		URL:             fmt.Sprintf("https://t.me/%s/%s", channel, id),
		PublishedAt:     time.Unix(m.Date, 0).UTC(),
		Engagement:      map[string]int{"views": m.Views, "forwards": m.Forwards},
		EngagementScore: m.Views / 10,
		Metadata: map[string]interface{}{
			"channel": m.Chat.Title,
		},
	}, nil
}
