package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ PostRepository = (*PostRepositoryImpl)(nil)

// PostRepositoryImpl handles database operations for stored social posts.
type PostRepositoryImpl struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

func (r *PostRepositoryImpl) CheckSeen(ctx context.Context, platform, externalID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM social_posts
		WHERE platform = $1 AND external_id = $2
		LIMIT 1
	`, platform, externalID).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for existing post: %w", err)
	}

	return true, nil
}

func (r *PostRepositoryImpl) UpsertPost(ctx context.Context, post StoredPost) error {
	engagement, err := json.Marshal(post.Engagement)
	if err != nil {
		return fmt.Errorf("failed to encode engagement: %w", err)
	}
	keywords, err := json.Marshal(post.MatchedKeywords)
	if err != nil {
		return fmt.Errorf("failed to encode matched keywords: %w", err)
	}
	metadata, err := json.Marshal(post.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO social_posts (
			platform, external_id, author_username, author_id, follower_count,
			content, url, published_at, engagement_score, engagement,
			matched_keywords, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (platform, external_id) DO UPDATE SET
			engagement_score = EXCLUDED.engagement_score,
			engagement = EXCLUDED.engagement,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, post.Platform, post.ExternalID, post.AuthorUsername, post.AuthorID,
		post.FollowerCount, post.Content, post.URL, post.PublishedAt,
		post.EngagementScore, engagement, keywords, metadata)

	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) GetRecentPosts(platform string, limit int) ([]StoredPost, error) {
	rows, err := r.db.Query(`
		SELECT id, platform, external_id, COALESCE(author_username, ''),
		       COALESCE(author_id, ''), follower_count, content, COALESCE(url, ''),
		       published_at, engagement_score, engagement, matched_keywords,
		       metadata, created_at, updated_at
		FROM social_posts
		WHERE platform = $1
		ORDER BY published_at DESC
		LIMIT $2
	`, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}
	defer rows.Close()

	var posts []StoredPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func scanPost(rows *sql.Rows) (StoredPost, error) {
	var post StoredPost
	var engagement, keywords, metadata []byte

	err := rows.Scan(
		&post.ID, &post.Platform, &post.ExternalID, &post.AuthorUsername,
		&post.AuthorID, &post.FollowerCount, &post.Content, &post.URL,
		&post.PublishedAt, &post.EngagementScore, &engagement, &keywords,
		&metadata, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return StoredPost{}, fmt.Errorf("failed to scan post row: %w", err)
	}

	if len(engagement) > 0 {
		if err := json.Unmarshal(engagement, &post.Engagement); err != nil {
			return StoredPost{}, fmt.Errorf("failed to decode engagement: %w", err)
		}
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &post.MatchedKeywords); err != nil {
			return StoredPost{}, fmt.Errorf("failed to decode matched keywords: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &post.Metadata); err != nil {
			return StoredPost{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	return post, nil
}

func (r *PostRepositoryImpl) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM social_posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

func (r *PostRepositoryImpl) GetPostCountByPlatform() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT platform, COUNT(*)
		FROM social_posts
		GROUP BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get post counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[platform] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}

	return counts, nil
}
