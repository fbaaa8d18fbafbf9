package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EventStore is the part of storage the retention job needs.
type EventStore interface {
	CountEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// Service handles physical deletion of old analytics events
type Service struct {
	store  EventStore
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a new cleanup service
func NewService(store EventStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		now:    time.Now,
		logger: logger.With("component", "cleanup"),
	}
}

// Config holds configuration for cleanup operations
type Config struct {
	RetentionDays    int  // Days of events to keep. Never shorter than the badge activity window.
	MaxDeletionCount int  // Abort when more events than this are eligible
	BatchSize        int  // Rows deleted per statement
	DryRun           bool // Only count what would be deleted
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RetentionDays:    90,
		MaxDeletionCount: 5_000_000,
		BatchSize:        5000,
	}
}

// Result holds the result of a cleanup operation
type Result struct {
	Cutoff       time.Time `json:"cutoff"`
	TargetCount  int64     `json:"target_count"`
	DeletedCount int64     `json:"deleted_count"`
	Batches      int       `json:"batches"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// PurgeEvents deletes events older than the retention window in batches.
// minRetentionDays guards the window the badge classifier reads from.
func (s *Service) PurgeEvents(ctx context.Context, cfg Config, minRetentionDays int) (*Result, error) {
	if cfg.RetentionDays < minRetentionDays {
		return nil, fmt.Errorf("retention of %d days is shorter than the %d day activity window",
			cfg.RetentionDays, minRetentionDays)
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	now := s.now()
	result := &Result{
		Cutoff:     now.AddDate(0, 0, -cfg.RetentionDays),
		DryRun:     cfg.DryRun,
		ExecutedAt: now,
	}

	target, err := s.store.CountEventsBefore(ctx, result.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count expired events: %w", err)
	}
	result.TargetCount = target

	if target == 0 {
		s.logger.Info("no expired events", "cutoff", result.Cutoff)
		return result, nil
	}

	// Safety check: abort if too many rows would be deleted
	if cfg.MaxDeletionCount > 0 && target > int64(cfg.MaxDeletionCount) {
		return nil, fmt.Errorf("safety check failed: %d events exceed max deletion limit of %d",
			target, cfg.MaxDeletionCount)
	}

	if cfg.DryRun {
		s.logger.Info("dry run, nothing deleted", "target", target, "cutoff", result.Cutoff)
		return result, nil
	}

	for result.DeletedCount < target {
		n, err := s.store.DeleteEventsBefore(ctx, result.Cutoff, cfg.BatchSize)
		if err != nil {
			return result, fmt.Errorf("batch %d failed after %d deletions: %w",
				result.Batches+1, result.DeletedCount, err)
		}
		result.Batches++
		result.DeletedCount += n
		if n == 0 {
			break
		}
	}

	s.logger.Info("event cleanup completed",
		"deleted", result.DeletedCount,
		"target", target,
		"batches", result.Batches,
		"retention_days", cfg.RetentionDays)
	return result, nil
}
