package fallback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/models"
)

// ErrCircuitOpen is returned without touching the store while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreaker stops calls to a failing store until resetTimeout has passed
// since the last failure.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
	logger           *slog.Logger

	consecutiveFailures int
	totalFailures       int
	isOpen              bool
	trialInFlight       bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		logger:           logger.With("component", "breaker"),
	}
}

// RecordSuccess closes the breaker and clears the failure streak
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.isOpen {
		cb.logger.Info("circuit breaker closed")
	}
	cb.consecutiveFailures = 0
	cb.isOpen = false
	cb.trialInFlight = false
}

// RecordFailure opens the breaker once the streak reaches the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.consecutiveFailures++
	cb.totalFailures++
	cb.lastFailureTime = cb.now()

	if cb.trialInFlight {
		cb.trialInFlight = false
		cb.logger.Warn("trial call failed, circuit breaker stays open", "retry_after", cb.resetTimeout)
		return
	}
	if !cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		cb.logger.Warn("circuit breaker open",
			"consecutive_failures", cb.consecutiveFailures,
			"retry_after", cb.resetTimeout)
	}
}

// CanProceed checks if requests are allowed. After the reset timeout a single
// trial call is let through while other callers keep failing fast. Its
// outcome closes the breaker or restarts the timeout.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}
	if cb.trialInFlight {
		return false
	}

	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.logger.Info("circuit breaker half-open")
		cb.trialInFlight = true
		return true
	}

	return false
}

// ReleaseTrial gives up a trial call that ended without a verdict on the
// store, so the next caller may try instead.
func (cb *CircuitBreaker) ReleaseTrial() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.trialInFlight = false
}

// BreakerStatus is a point-in-time view for admin endpoints.
type BreakerStatus struct {
	Open                bool      `json:"open"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalFailures       int       `json:"total_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() BreakerStatus {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return BreakerStatus{
		Open:                cb.isOpen,
		ConsecutiveFailures: cb.consecutiveFailures,
		TotalFailures:       cb.totalFailures,
		LastFailure:         cb.lastFailureTime,
	}
}

// PrimaryStore is what GuardedStore wraps.
type PrimaryStore interface {
	catalog.Store
	catalog.Finder
	catalog.PoolLoader
}

// GuardedStore routes reads through a circuit breaker.
type GuardedStore struct {
	primary PrimaryStore
	breaker *CircuitBreaker
}

func NewGuardedStore(primary PrimaryStore, breaker *CircuitBreaker) *GuardedStore {
	return &GuardedStore{primary: primary, breaker: breaker}
}

func (g *GuardedStore) record(err error) {
	if err == nil || errors.Is(err, catalog.ErrNotFound) {
		g.breaker.RecordSuccess()
		return
	}
	// a caller giving up is not a store failure
	if errors.Is(err, context.Canceled) {
		g.breaker.ReleaseTrial()
		return
	}
	g.breaker.RecordFailure()
}

func (g *GuardedStore) Select(ctx context.Context, req catalog.SelectRequest) (catalog.SelectResult, error) {
	if !g.breaker.CanProceed() {
		return catalog.SelectResult{}, ErrCircuitOpen
	}
	res, err := g.primary.Select(ctx, req)
	g.record(err)
	return res, err
}

func (g *GuardedStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	if !g.breaker.CanProceed() {
		return nil, ErrCircuitOpen
	}
	l, err := g.primary.GetListing(ctx, id)
	g.record(err)
	return l, err
}

func (g *GuardedStore) CandidatePool(ctx context.Context, focal models.Listing) ([]models.Listing, error) {
	if !g.breaker.CanProceed() {
		return nil, ErrCircuitOpen
	}
	pool, err := g.primary.CandidatePool(ctx, focal)
	g.record(err)
	return pool, err
}
