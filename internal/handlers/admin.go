package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"listing-catalog/internal/cleanup"
	"listing-catalog/internal/database"
	"listing-catalog/internal/fallback"
	"listing-catalog/internal/ratelimit"
	"listing-catalog/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// StatsSource reports catalog counts.
type StatsSource interface {
	GetStats(ctx context.Context) (*database.ListingStats, error)
}

// JobRunner runs registered maintenance jobs on demand.
type JobRunner interface {
	RunNow(name string) error
	Jobs() []string
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	stats   StatsSource
	jobs    JobRunner
	breaker *fallback.CircuitBreaker
	limiter *ratelimit.RateLimiter
	logger  *slog.Logger

	cleanup         *cleanup.Service
	cleanupDefaults cleanup.Config
	minRetention    int
}

// NewAdminHandler creates a new admin handler. Any collaborator may be nil;
// the matching endpoints then answer 503.
func NewAdminHandler(stats StatsSource, jobs JobRunner, breaker *fallback.CircuitBreaker, limiter *ratelimit.RateLimiter, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		stats:   stats,
		jobs:    jobs,
		breaker: breaker,
		limiter: limiter,
		logger:  logger.With("component", "admin"),
	}
}

// WithCleanup enables the event retention endpoint. minRetentionDays is the
// badge activity window, which a purge must never cut into.
func (h *AdminHandler) WithCleanup(svc *cleanup.Service, defaults cleanup.Config, minRetentionDays int) *AdminHandler {
	h.cleanup = svc
	h.cleanupDefaults = defaults
	h.minRetention = minRetentionDays
	return h
}

// Register mounts the admin routes on r.
func (h *AdminHandler) Register(r gin.IRouter) {
	r.GET("/stats", h.GetStats)
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/:name/run", h.TriggerJob)
	r.GET("/breaker", h.GetBreakerStatus)
	r.GET("/ratelimit", h.GetRateLimitStats)
	r.POST("/cleanup/run", h.RunCleanup)
}

// GetStats returns listing counts by status and sub category
func (h *AdminHandler) GetStats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stats not available (database required)"})
		return
	}
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load stats", "error", err, "trace_id", traceID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListJobs returns the names of the registered maintenance jobs
func (h *AdminHandler) ListJobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.Jobs()})
}

// TriggerJob starts a maintenance job (badge refresh, reindex) in the background
func (h *AdminHandler) TriggerJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not available"})
		return
	}

	name := c.Param("name")
	if !contains(h.jobs.Jobs(), name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job", "job": name})
		return
	}

	h.logger.Info("manual job trigger requested", "job", name, "trace_id", traceID(c))

	// Run in goroutine to avoid blocking
	go func() {
		if err := h.jobs.RunNow(name); err != nil && !errors.Is(err, scheduler.ErrJobRunning) {
			h.logger.Error("manual job failed", "job", name, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Job started",
		"job":     name,
		"status":  "running",
	})
}

// GetBreakerStatus returns the primary store circuit breaker state
func (h *AdminHandler) GetBreakerStatus(c *gin.Context) {
	if h.breaker == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "status": h.breaker.GetStatus()})
}

// GetRateLimitStats returns current rate limiter statistics
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, ratelimit.Stats{})
		return
	}
	c.JSON(http.StatusOK, h.limiter.GetStats())
}

// RunCleanup deletes analytics events older than the retention window
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	if h.cleanup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cleanup not available"})
		return
	}

	var req struct {
		RetentionDays    int   `json:"retention_days"`
		MaxDeletionCount int   `json:"max_deletion_count"`
		DryRun           *bool `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := h.cleanupDefaults
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		cfg.MaxDeletionCount = req.MaxDeletionCount
	}
	// dry run unless the caller opts out explicitly
	cfg.DryRun = req.DryRun == nil || *req.DryRun

	h.logger.Info("running event cleanup",
		"retention_days", cfg.RetentionDays,
		"dry_run", cfg.DryRun,
		"trace_id", traceID(c))

	result, err := h.cleanup.PurgeEvents(c.Request.Context(), cfg, h.minRetention)
	if err != nil {
		h.logger.Error("event cleanup failed", "error", err, "trace_id", traceID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
