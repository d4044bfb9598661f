package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sievekit/social-sieve/app/database"
	"github.com/sievekit/social-sieve/app/ingest"
	"github.com/sievekit/social-sieve/app/post"
	"github.com/sievekit/social-sieve/app/rules"
	"github.com/sievekit/social-sieve/app/tasks"
)

func NewHandler(postRepo database.PostRepository, ruleRepo database.RuleRepository,
	rulesCache *rules.Cache, pipeline *ingest.Pipeline,
	scheduler tasks.TaskSchedulerInterface, batchTimeout time.Duration) *Handler {
	return &Handler{
		postRepo:     postRepo,
		ruleRepo:     ruleRepo,
		rulesCache:   rulesCache,
		pipeline:     pipeline,
		scheduler:    scheduler,
		batchTimeout: batchTimeout,
	}
}

// Ingest accepts a batch of raw platform records and runs them through the
// pipeline. With ?async=1 the batch is enqueued as a background task and the
// handler returns immediately.
func (h *Handler) Ingest(c *gin.Context) {
	platform := c.Param("platform")
	if !post.ValidPlatform(platform) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported platform: " + platform})
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No records provided"})
		return
	}

	set := h.rulesCache.Current()
	if set == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rules not loaded yet"})
		return
	}

	if c.Query("async") == "1" {
		task := tasks.NewIngestBatchTask(platform, req.Records, h.pipeline, h.rulesCache, h.batchTimeout)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Error("Error enqueueing ingest task", "platform", platform, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Failed to enqueue ingest task",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id":  task.ID,
			"platform": platform,
			"queued":   len(req.Records),
		})
		return
	}

	ctx := c.Request.Context()
	if h.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.batchTimeout)
		defer cancel()
	}

	result := h.pipeline.Run(ctx, platform, req.Records, set)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		health["posts"] = postCount
	}

	if set := h.rulesCache.Current(); set != nil {
		health["rules"] = set.Len()
		health["rules_loaded_at"] = h.rulesCache.LoadedAt().Format(time.RFC3339)
	} else {
		health["rules"] = 0
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if total, err := h.postRepo.GetPostCount(); err == nil {
		stats["total_posts"] = total
	}
	if counts, err := h.postRepo.GetPostCountByPlatform(); err == nil {
		stats["posts_by_platform"] = counts
	}
	if ruleCount, err := h.ruleRepo.GetRuleCount(); err == nil {
		stats["total_rules"] = ruleCount
	}
	if set := h.rulesCache.Current(); set != nil {
		stats["active_rules"] = set.Len()
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListRules(c *gin.Context) {
	set := h.rulesCache.Current()
	if set == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rules not loaded yet"})
		return
	}

	compiled := set.Rules()
	list := make([]map[string]interface{}, 0, len(compiled))
	for _, r := range compiled {
		list = append(list, map[string]interface{}{
			"id":               r.ID,
			"name":             r.Name,
			"keywords":         r.Keywords,
			"exclude_keywords": r.ExcludeKeywords,
			"match_type":       r.MatchType,
			"case_sensitive":   r.CaseSensitive,
			"platforms":        r.Platforms,
			"category":         r.Category,
			"priority":         r.Priority,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"rules":     list,
		"total":     len(list),
		"loaded_at": h.rulesCache.LoadedAt().Format(time.RFC3339),
	})
}

func (h *Handler) APIReloadRules(c *gin.Context) {
	task := tasks.NewSyncRulesTask(h.ruleRepo, h.rulesCache)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing rule sync task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue rule sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Rule sync task enqueued successfully",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APIListPosts(c *gin.Context) {
	platform := c.Query("platform")
	if !post.ValidPlatform(platform) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported platform: " + platform})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	posts, err := h.postRepo.GetRecentPosts(platform, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_posts", "platform", platform, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"posts": postList(posts),
		"total": len(posts),
	})
}

func postList(posts []database.StoredPost) []map[string]interface{} {
	list := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		list = append(list, map[string]interface{}{
			"id":               p.ID,
			"platform":         p.Platform,
			"external_id":      p.ExternalID,
			"author_username":  p.AuthorUsername,
			"content":          p.Content,
			"url":              p.URL,
			"published_at":     p.PublishedAt.Format(time.RFC3339),
			"engagement_score": p.EngagementScore,
			"engagement":       p.Engagement,
			"matched_keywords": p.MatchedKeywords,
			"created_at":       p.CreatedAt.Format(time.RFC3339),
		})
	}
	return list
}
