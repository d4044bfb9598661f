package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sievekit/social-sieve/app/database"
	"github.com/sievekit/social-sieve/app/rules"
)

type fakePostRepo struct {
	mu           sync.Mutex
	posts        map[string]database.StoredPost
	upsertCalls  int
	failUpserts  int
	failReason   error
	checkFailure error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]database.StoredPost)}
}

func (f *fakePostRepo) key(platform, externalID string) string {
	return platform + ":" + externalID
}

func (f *fakePostRepo) CheckSeen(ctx context.Context, platform, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkFailure != nil {
		return false, f.checkFailure
	}
	_, ok := f.posts[f.key(platform, externalID)]
	return ok, nil
}

func (f *fakePostRepo) UpsertPost(ctx context.Context, post database.StoredPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.failUpserts > 0 {
		f.failUpserts--
		return f.failReason
	}

	key := f.key(post.Platform, post.ExternalID)
	if existing, ok := f.posts[key]; ok {
		existing.EngagementScore = post.EngagementScore
		existing.Engagement = post.Engagement
		existing.Metadata = post.Metadata
		f.posts[key] = existing
		return nil
	}
	f.posts[key] = post
	return nil
}

func (f *fakePostRepo) GetRecentPosts(platform string, limit int) ([]database.StoredPost, error) {
	return nil, nil
}

func (f *fakePostRepo) GetPostCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts), nil
}

func (f *fakePostRepo) GetPostCountByPlatform() (map[string]int, error) {
	return nil, nil
}

func testRuleSet(t *testing.T) *rules.Set {
	t.Helper()
	return rules.NewSet([]rules.Rule{
		{
			ID:        1,
			Name:      "DeFi",
			Keywords:  []string{"defi", "ethereum"},
			MatchType: rules.MatchAny,
			Platforms: []string{"twitter", "reddit", "telegram"},
			Priority:  5,
			Active:    true,
		},
	})
}

func tweetRecord(id, text string, likes int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"id": %q,
		"text": %q,
		"created_at": "2024-03-15T10:30:00Z",
		"author_id": "999",
		"public_metrics": {"like_count": %d},
		"author": {"username": "cryptodev", "public_metrics": {"followers_count": 5000}}
	}`, id, text, likes))
}

func TestRunStoresMatchingRecords(t *testing.T) {
	repo := newFakePostRepo()
	pipeline := NewPipeline(repo, nil, 4)

	records := []json.RawMessage{
		tweetRecord("1", "Ethereum just launched a new defi protocol", 10),
		tweetRecord("2", "nothing interesting here", 3),
	}

	result := pipeline.Run(context.Background(), "twitter", records, testRuleSet(t))

	if result.JobID == "" {
		t.Error("expected a job id")
	}
	if result.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", result.Processed)
	}
	if result.Matched != 1 {
		t.Errorf("expected 1 matched, got %d", result.Matched)
	}
	if result.Stored != 1 {
		t.Errorf("expected 1 stored, got %d", result.Stored)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors, got %v", result.Errors)
	}

	stored := repo.posts["twitter:1"]
	if len(stored.MatchedKeywords) != 2 {
		t.Errorf("unexpected matched keywords: %v", stored.MatchedKeywords)
	}
}

func TestRunIsolatesFailingRecords(t *testing.T) {
	repo := newFakePostRepo()
	pipeline := NewPipeline(repo, nil, 2)

	records := []json.RawMessage{
		json.RawMessage(`not json at all`),
		json.RawMessage(`{"id": "3"}`),
		tweetRecord("4", "new defi yield strategy", 1),
	}

	result := pipeline.Run(context.Background(), "twitter", records, testRuleSet(t))

	if result.Processed != 3 {
		t.Errorf("expected 3 processed, got %d", result.Processed)
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", result.Errors)
	}
	if result.Stored != 1 {
		t.Errorf("expected 1 stored, got %d", result.Stored)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	repo := newFakePostRepo()
	pipeline := NewPipeline(repo, nil, 2)

	records := []json.RawMessage{tweetRecord("5", "defi season is back", 10)}
	set := testRuleSet(t)

	first := pipeline.Run(context.Background(), "twitter", records, set)
	if first.Stored != 1 {
		t.Fatalf("expected 1 stored on first run, got %d", first.Stored)
	}

	// Same record with fresher engagement: upserted, not counted as stored.
	second := pipeline.Run(context.Background(), "twitter",
		[]json.RawMessage{tweetRecord("5", "defi season is back", 50)}, set)
	if second.Stored != 0 {
		t.Errorf("expected 0 stored on repeat run, got %d", second.Stored)
	}
	if second.Matched != 1 {
		t.Errorf("expected repeat record to still match, got %d", second.Matched)
	}

	if got := repo.posts["twitter:5"].Engagement["likes"]; got != 50 {
		t.Errorf("expected engagement refreshed to 50 likes, got %d", got)
	}
}

func TestRunDedupesWithinBatch(t *testing.T) {
	repo := newFakePostRepo()
	pipeline := NewPipeline(repo, nil, 1)

	records := []json.RawMessage{
		tweetRecord("6", "defi news", 1),
		tweetRecord("6", "defi news", 2),
	}

	result := pipeline.Run(context.Background(), "twitter", records, testRuleSet(t))

	if result.Matched != 2 {
		t.Errorf("expected 2 matched, got %d", result.Matched)
	}
	if result.Stored != 1 {
		t.Errorf("expected 1 stored for in-batch duplicate, got %d", result.Stored)
	}
}

func TestRunRetriesStoreFailures(t *testing.T) {
	repo := newFakePostRepo()
	repo.failUpserts = 1
	repo.failReason = errors.New("connection reset")
	pipeline := NewPipeline(repo, nil, 1)

	records := []json.RawMessage{tweetRecord("7", "defi update", 1)}

	result := pipeline.Run(context.Background(), "twitter", records, testRuleSet(t))

	if result.Stored != 1 {
		t.Errorf("expected store to succeed after retry, got stored=%d errors=%v",
			result.Stored, result.Errors)
	}
	if repo.upsertCalls != 2 {
		t.Errorf("expected 2 upsert attempts, got %d", repo.upsertCalls)
	}
}

func TestRunCountsExhaustedRetriesAsError(t *testing.T) {
	repo := newFakePostRepo()
	repo.failUpserts = storeMaxAttempts
	repo.failReason = errors.New("database is down")
	pipeline := NewPipeline(repo, nil, 1)

	records := []json.RawMessage{tweetRecord("8", "defi update", 1)}

	result := pipeline.Run(context.Background(), "twitter", records, testRuleSet(t))

	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", result.Errors)
	}
	if result.Stored != 0 {
		t.Errorf("expected 0 stored, got %d", result.Stored)
	}
}

func TestRunHonorsDeadline(t *testing.T) {
	repo := newFakePostRepo()
	pipeline := NewPipeline(repo, nil, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []json.RawMessage{
		tweetRecord("9", "defi one", 1),
		tweetRecord("10", "defi two", 1),
	}

	result := pipeline.Run(ctx, "twitter", records, testRuleSet(t))

	if len(result.Errors) != 2 {
		t.Errorf("expected all records counted as errors, got %v", result.Errors)
	}
	if result.Stored != 0 {
		t.Errorf("expected 0 stored after cancellation, got %d", result.Stored)
	}
}

// blockingPostRepo hangs every store call until its context is canceled,
// simulating a dead database connection.
type blockingPostRepo struct {
	fakePostRepo
}

func (b *blockingPostRepo) CheckSeen(ctx context.Context, platform, externalID string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func (b *blockingPostRepo) UpsertPost(ctx context.Context, post database.StoredPost) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunAbandonsHungStoreCallOnDeadline(t *testing.T) {
	repo := &blockingPostRepo{fakePostRepo: *newFakePostRepo()}
	pipeline := NewPipeline(repo, nil, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	records := []json.RawMessage{
		tweetRecord("11", "defi hang one", 1),
		tweetRecord("12", "defi hang two", 1),
	}

	start := time.Now()
	result := pipeline.Run(ctx, "twitter", records, testRuleSet(t))
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("Run blocked %s past a 100ms deadline", elapsed)
	}
	if result.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", result.Processed)
	}
	if result.Stored != 0 {
		t.Errorf("expected 0 stored, got %d", result.Stored)
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected both hung records counted as errors, got %v", result.Errors)
	}
}

func TestResultCombine(t *testing.T) {
	a := Result{JobID: "a", Platform: "twitter", Processed: 10, Matched: 4, Stored: 3,
		Errors: []string{"normalize: bad record"}, Duration: time.Second}
	b := Result{JobID: "b", Platform: "reddit", Processed: 5, Matched: 2, Stored: 2,
		Errors: []string{"store reddit:x: timeout"}, Duration: 2 * time.Second}

	combined := a.Combine(b)

	if combined.JobID != "a" || combined.Platform != "twitter" {
		t.Errorf("expected receiver identity kept, got %s/%s", combined.JobID, combined.Platform)
	}
	if combined.Processed != 15 || combined.Matched != 6 || combined.Stored != 5 {
		t.Errorf("unexpected combined counters: %+v", combined)
	}
	if len(combined.Errors) != 2 || combined.Errors[0] != "normalize: bad record" {
		t.Errorf("unexpected combined errors: %v", combined.Errors)
	}
	if combined.Duration != 3*time.Second {
		t.Errorf("unexpected combined duration: %s", combined.Duration)
	}
}
