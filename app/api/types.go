package api

import (
	"encoding/json"
	"time"

	"github.com/sievekit/social-sieve/app/database"
	"github.com/sievekit/social-sieve/app/ingest"
	"github.com/sievekit/social-sieve/app/rules"
	"github.com/sievekit/social-sieve/app/tasks"
)

type Handler struct {
	postRepo     database.PostRepository
	ruleRepo     database.RuleRepository
	rulesCache   *rules.Cache
	pipeline     *ingest.Pipeline
	scheduler    tasks.TaskSchedulerInterface
	batchTimeout time.Duration
}

// IngestRequest is the body of POST /ingest/:platform. Records are raw
// platform API objects; the pipeline normalizes them per platform.
type IngestRequest struct {
	Records []json.RawMessage `json:"records"`
}
