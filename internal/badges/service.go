package badges

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"listing-catalog/internal/models"
)

// EventCounter is the analytics read interface.
type EventCounter interface {
	CountEventsInWindow(ctx context.Context, eventType models.EventType, windowDays int) (map[string]int, error)
}

// ListingLister returns every available listing.
type ListingLister interface {
	ListAvailable(ctx context.Context) ([]models.Listing, error)
}

// TagStore persists the last computed badge map. ok is false on a miss.
type TagStore interface {
	SaveTags(ctx context.Context, tags map[string]Tag) error
	LoadTags(ctx context.Context) (tags map[string]Tag, ok bool, err error)
}

// Service recomputes badges from storage and keeps the result in a TagStore.
type Service struct {
	classifier Classifier
	listings   ListingLister
	events     EventCounter
	store      TagStore
	logger     *slog.Logger
}

// NewService builds a badge service. store may be nil, in which case every
// call to Tags recomputes.
func NewService(c Classifier, listings ListingLister, events EventCounter, store TagStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		classifier: c,
		listings:   listings,
		events:     events,
		store:      store,
		logger:     logger.With("component", "badges"),
	}
}

// Compute classifies the current listing snapshot without touching the store.
func (s *Service) Compute(ctx context.Context) (map[string]Tag, error) {
	listings, err := s.listings.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	days := s.classifier.ActivityWindowDays()
	views, err := s.events.CountEventsInWindow(ctx, models.EventTypeView, days)
	if err != nil {
		return nil, fmt.Errorf("failed to count views: %w", err)
	}
	saves, err := s.events.CountEventsInWindow(ctx, models.EventTypeSave, days)
	if err != nil {
		return nil, fmt.Errorf("failed to count saves: %w", err)
	}

	return s.classifier.Classify(listings, views, saves), nil
}

// Refresh recomputes badges and stores them.
func (s *Service) Refresh(ctx context.Context) (map[string]Tag, error) {
	tags, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveTags(ctx, tags); err != nil {
			// computed tags are still usable for this caller
			s.logger.Warn("failed to store badges", "error", err)
		}
	}

	s.logger.Info("badges refreshed", "tagged", len(tags))
	return tags, nil
}

// Tags returns the stored badge map, recomputing on a miss or store error.
func (s *Service) Tags(ctx context.Context) (map[string]Tag, error) {
	if s.store != nil {
		tags, ok, err := s.store.LoadTags(ctx)
		if err != nil {
			s.logger.Warn("failed to load stored badges", "error", err)
		} else if ok {
			return tags, nil
		}
	}
	return s.Refresh(ctx)
}

// MemoryTagStore keeps the last badge map in process for ttl. It is used
// when no shared cache is configured.
type MemoryTagStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	tags  map[string]Tag
	saved time.Time
}

func NewMemoryTagStore(ttl time.Duration) *MemoryTagStore {
	return &MemoryTagStore{ttl: ttl, now: time.Now}
}

func (m *MemoryTagStore) SaveTags(_ context.Context, tags map[string]Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = tags
	m.saved = m.now()
	return nil
}

func (m *MemoryTagStore) LoadTags(context.Context) (map[string]Tag, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tags == nil || (m.ttl > 0 && m.now().Sub(m.saved) > m.ttl) {
		return nil, false, nil
	}
	return m.tags, true, nil
}
