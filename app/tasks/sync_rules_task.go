package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sievekit/social-sieve/app/database"
	"github.com/sievekit/social-sieve/app/rules"
)

// SyncRulesTask loads the active keyword rules from the database, compiles
// them and swaps the shared rule cache. Ingestion batches that already hold
// the previous snapshot keep using it until they finish.
type SyncRulesTask struct {
	Task
	ruleRepo   database.RuleRepository
	rulesCache *rules.Cache
}

func NewSyncRulesTask(ruleRepo database.RuleRepository, rulesCache *rules.Cache) *SyncRulesTask {
	return &SyncRulesTask{
		Task:       NewTask(TaskTypeSyncRules, "rules"),
		ruleRepo:   ruleRepo,
		rulesCache: rulesCache,
	}
}

func (t *SyncRulesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rs, err := t.ruleRepo.GetActiveRules()
	if err != nil {
		slog.Error("Task failed", "type", "SyncRules", "error", err)
		return fmt.Errorf("failed to load active rules: %w", err)
	}

	set := rules.NewSet(rs)
	t.rulesCache.Update(set)

	slog.Info("Task completed",
		"type", "SyncRules",
		"rules", set.Len(),
		"duration", t.GetDuration())

	return nil
}
