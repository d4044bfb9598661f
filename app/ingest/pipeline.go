package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sievekit/social-sieve/app/cache"
	"github.com/sievekit/social-sieve/app/database"
	"github.com/sievekit/social-sieve/app/match"
	"github.com/sievekit/social-sieve/app/post"
	"github.com/sievekit/social-sieve/app/rules"
)

const (
	storeMaxAttempts  = 3
	storeInitialDelay = 500 * time.Millisecond
	storeMaxDelay     = 5 * time.Second
)

// Pipeline runs raw platform records through normalize, match, dedup and
// store. A single Pipeline is shared by the HTTP handlers and the background
// tasks; Run is safe for concurrent use.
type Pipeline struct {
	posts       database.PostRepository
	seen        *cache.SeenCache
	normalizer  *post.Normalizer
	matcher     *match.Matcher
	workerCount int
}

// NewPipeline creates a pipeline backed by the given repository. seen may be
// nil, in which case dedup checks go straight to the database.
func NewPipeline(posts database.PostRepository, seen *cache.SeenCache, workerCount int) *Pipeline {
	if workerCount < 1 {
		workerCount = 1
	}

	return &Pipeline{
		posts:       posts,
		seen:        seen,
		normalizer:  post.NewNormalizer(),
		matcher:     match.NewMatcher(),
		workerCount: workerCount,
	}
}

type batchState struct {
	mu      sync.Mutex
	claimed map[string]bool
	result  Result
}

// Run processes a batch of raw records for one platform against the given
// rule snapshot. A failing record is counted in Errors and never aborts the
// batch. When ctx expires, records not yet picked up are drained and counted
// as errors.
func (p *Pipeline) Run(ctx context.Context, platform string, records []json.RawMessage, set *rules.Set) Result {
	start := time.Now()

	state := &batchState{
		claimed: make(map[string]bool),
		result: Result{
			JobID:    ulid.Make().String(),
			Platform: platform,
		},
	}

	queue := make(chan json.RawMessage, len(records))
	for _, rec := range records {
		queue <- rec
	}
	close(queue)

	workers := p.workerCount
	if workers > len(records) {
		workers = len(records)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range queue {
				if ctx.Err() != nil {
					state.mu.Lock()
					state.result.Processed++
					state.mu.Unlock()
					p.recordError(state, platform, "deadline", "deadline exceeded before record was processed")
					continue
				}
				p.processRecord(ctx, platform, rec, set, state)
			}
		}()
	}
	wg.Wait()

	state.result.Duration = time.Since(start)
	BatchDuration.WithLabelValues(platform).Observe(state.result.Duration.Seconds())

	slog.Debug("Ingestion batch completed", "job_id", state.result.JobID,
		"platform", platform, "processed", state.result.Processed,
		"matched", state.result.Matched, "stored", state.result.Stored,
		"errors", len(state.result.Errors), "duration", state.result.Duration.String())

	return state.result
}

func (p *Pipeline) processRecord(ctx context.Context, platform string, rec json.RawMessage, set *rules.Set, state *batchState) {
	state.mu.Lock()
	state.result.Processed++
	state.mu.Unlock()
	RecordsProcessed.WithLabelValues(platform).Inc()

	normalized, err := p.normalizer.Run(platform, rec)
	if err != nil {
		slog.Warn("Failed to normalize record", "platform", platform, "error", err)
		p.recordError(state, platform, "normalize", fmt.Sprintf("normalize: %v", err))
		return
	}

	matches := p.matcher.Evaluate(normalized, set)
	if len(matches) == 0 {
		return
	}

	state.mu.Lock()
	state.result.Matched++
	firstInBatch := !state.claimed[normalized.ExternalID]
	state.claimed[normalized.ExternalID] = true
	state.mu.Unlock()
	RecordsMatched.WithLabelValues(platform).Inc()

	// A repeat sighting still gets upserted so engagement counters stay
	// fresh, but only a first-time store counts towards Stored.
	isNew := firstInBatch && !p.alreadySeen(ctx, platform, normalized.ExternalID)

	stored := database.StoredPost{
		Platform:        normalized.Platform,
		ExternalID:      normalized.ExternalID,
		AuthorUsername:  normalized.AuthorUsername,
		AuthorID:        normalized.AuthorID,
		FollowerCount:   normalized.FollowerCount,
		Content:         normalized.Content,
		URL:             normalized.URL,
		PublishedAt:     normalized.PublishedAt,
		EngagementScore: normalized.EngagementScore,
		Engagement:      normalized.Engagement,
		MatchedKeywords: match.MatchedKeywords(matches),
		Metadata:        normalized.Metadata,
	}

	if err := p.storeWithRetry(ctx, stored); err != nil {
		slog.Error("Failed to store post", "platform", platform,
			"external_id", normalized.ExternalID, "error", err)
		p.recordError(state, platform, "store",
			fmt.Sprintf("store %s:%s: %v", platform, normalized.ExternalID, err))
		return
	}

	if p.seen != nil {
		p.seen.Mark(ctx, platform, normalized.ExternalID)
	}

	if isNew {
		state.mu.Lock()
		state.result.Stored++
		state.mu.Unlock()
		RecordsStored.WithLabelValues(platform).Inc()
	}
}

func (p *Pipeline) alreadySeen(ctx context.Context, platform, externalID string) bool {
	if p.seen != nil && p.seen.Seen(ctx, platform, externalID) {
		return true
	}

	seen, err := p.posts.CheckSeen(ctx, platform, externalID)
	if err != nil {
		slog.Warn("Dedup check failed, treating post as new", "platform", platform,
			"external_id", externalID, "error", err)
		return false
	}
	return seen
}

func (p *Pipeline) storeWithRetry(ctx context.Context, stored database.StoredPost) error {
	var err error
	delay := storeInitialDelay

	for attempt := 1; attempt <= storeMaxAttempts; attempt++ {
		err = p.posts.UpsertPost(ctx, stored)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == storeMaxAttempts {
			break
		}

		slog.Warn("Store attempt failed, retrying", "platform", stored.Platform,
			"external_id", stored.ExternalID, "attempt", attempt, "delay", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > storeMaxDelay {
			delay = storeMaxDelay
		}
	}

	return err
}

func (p *Pipeline) recordError(state *batchState, platform, stage, msg string) {
	state.mu.Lock()
	state.result.Errors = append(state.result.Errors, msg)
	state.mu.Unlock()
	RecordErrors.WithLabelValues(platform, stage).Inc()
}
