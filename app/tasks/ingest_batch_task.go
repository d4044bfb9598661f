package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sievekit/social-sieve/app/ingest"
	"github.com/sievekit/social-sieve/app/rules"
)

// IngestBatchTask runs a batch of raw platform records through the ingestion
// pipeline in the background. Used for async ingestion requests, where the
// HTTP handler returns before the batch completes.
type IngestBatchTask struct {
	Task
	platform   string
	records    []json.RawMessage
	pipeline   *ingest.Pipeline
	rulesCache *rules.Cache
	timeout    time.Duration
}

func NewIngestBatchTask(platform string, records []json.RawMessage,
	pipeline *ingest.Pipeline, rulesCache *rules.Cache, timeout time.Duration) *IngestBatchTask {
	return &IngestBatchTask{
		Task:       NewTask(TaskTypeIngestBatch, platform),
		platform:   platform,
		records:    records,
		pipeline:   pipeline,
		rulesCache: rulesCache,
		timeout:    timeout,
	}
}

func (t *IngestBatchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	set := t.rulesCache.Current()
	if set == nil {
		return fmt.Errorf("no rule snapshot available yet")
	}

	batchCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	result := t.pipeline.Run(batchCtx, t.platform, t.records, set)

	slog.Info("Task completed",
		"type", "IngestBatch",
		"platform", t.platform,
		"job_id", result.JobID,
		"processed", result.Processed,
		"matched", result.Matched,
		"stored", result.Stored,
		"errors", len(result.Errors),
		"duration", t.GetDuration())

	if len(result.Errors) > 0 && len(result.Errors) == result.Processed {
		return fmt.Errorf("all %d records in batch failed", len(result.Errors))
	}

	return nil
}
