package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named background task
type Job struct {
	Name string
	// Spec is a five-field cron expression or a daily "HH:MM" time.
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs maintenance jobs (badge refresh, search reindex, limiter sweep)
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	jobs      map[string]Job
	running   map[string]bool
	isRunning bool
	mu        sync.Mutex
}

// NewScheduler creates a new scheduler in the given location
func NewScheduler(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		logger:  logger.With("component", "scheduler"),
		jobs:    make(map[string]Job),
		running: make(map[string]bool),
	}
}

// Add registers a job. An empty spec registers the job for manual runs only.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	if job.Spec != "" {
		spec := parseSpec(job.Spec)
		if _, err := s.cron.AddFunc(spec, func() { s.execute(job) }); err != nil {
			return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Spec, err)
		}
		s.logger.Info("job scheduled", "job", job.Name, "cron", spec)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow immediately executes a registered job (for manual trigger)
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(job)
}

// Jobs returns the registered job names
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrJobRunning is returned when a job is triggered while a previous run is in flight.
var ErrJobRunning = errors.New("job already running")

func (s *Scheduler) execute(job Job) error {
	s.mu.Lock()
	if s.running[job.Name] {
		s.mu.Unlock()
		s.logger.Warn("job skipped, previous run still active", "job", job.Name)
		return ErrJobRunning
	}
	s.running[job.Name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name)
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		s.logger.Error("job failed", "job", job.Name, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
	s.logger.Info("job completed", "job", job.Name,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// parseSpec converts HH:MM format to a cron specification and passes
// anything else through unchanged.
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func parseSpec(spec string) string {
	var hour, minute int
	var rest string
	n, _ := fmt.Sscanf(spec, "%d:%d%s", &hour, &minute, &rest)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
	return spec
}
