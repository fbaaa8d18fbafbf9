package badges

import (
	"sort"
	"time"

	"listing-catalog/internal/models"
)

// Tag is a computed badge shown on a listing card.
type Tag string

const (
	TagTrending      Tag = "trending"
	TagNew           Tag = "new"
	TagRecentlySaved Tag = "recently-saved"
	TagUpdated       Tag = "updated"
)

const (
	DefaultTopN           = 10
	DefaultActivityWindow = 7 * 24 * time.Hour
	DefaultNewWindow      = 14 * 24 * time.Hour
	DefaultUpdatedWindow  = 3 * 24 * time.Hour
	DefaultMinUpdateGap   = 24 * time.Hour
)

// Classifier assigns at most one tag per listing. Rules are evaluated in
// priority order and the first match wins.
type Classifier struct {
	Now            func() time.Time
	TopN           int
	ActivityWindow time.Duration // window the view/save counts were taken over
	NewWindow      time.Duration
	UpdatedWindow  time.Duration
	MinUpdateGap   time.Duration
}

func NewClassifier() Classifier {
	return Classifier{
		Now:            time.Now,
		TopN:           DefaultTopN,
		ActivityWindow: DefaultActivityWindow,
		NewWindow:      DefaultNewWindow,
		UpdatedWindow:  DefaultUpdatedWindow,
		MinUpdateGap:   DefaultMinUpdateGap,
	}
}

// ActivityWindowDays is the window in whole days passed to the event counter.
func (c Classifier) ActivityWindowDays() int {
	w := c.ActivityWindow
	if w <= 0 {
		w = DefaultActivityWindow
	}
	days := int(w / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}

// Classify computes the badge map. views and saves hold event counts per
// listing ID within the activity window. Listings with no qualifying rule are
// absent from the result.
func (c Classifier) Classify(listings []models.Listing, views, saves map[string]int) map[string]Tag {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	topN := c.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	eligible := make(map[string]bool, len(listings))
	for _, l := range listings {
		eligible[l.ID] = true
	}
	trending := topByCount(views, eligible, topN)
	saved := topByCount(saves, eligible, topN)

	newSince := now.Add(-orDefault(c.NewWindow, DefaultNewWindow))
	updatedSince := now.Add(-orDefault(c.UpdatedWindow, DefaultUpdatedWindow))
	minGap := orDefault(c.MinUpdateGap, DefaultMinUpdateGap)

	tags := make(map[string]Tag)
	for _, l := range listings {
		switch {
		case trending[l.ID]:
			tags[l.ID] = TagTrending
		case l.CreatedAt.After(newSince):
			tags[l.ID] = TagNew
		case saved[l.ID]:
			tags[l.ID] = TagRecentlySaved
		case l.UpdatedAt.Sub(l.CreatedAt) > minGap && l.UpdatedAt.After(updatedSince):
			tags[l.ID] = TagUpdated
		}
	}
	return tags
}

// topByCount returns the IDs of the n highest counts among eligible listings.
// Zero counts never qualify; ties are broken by ID so the set is deterministic.
func topByCount(counts map[string]int, eligible map[string]bool, n int) map[string]bool {
	ids := make([]string, 0, len(counts))
	for id, count := range counts {
		if count > 0 && eligible[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}

	top := make(map[string]bool, len(ids))
	for _, id := range ids {
		top[id] = true
	}
	return top
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// TagOrStatic returns the computed tag for a listing, falling back to the
// tag stored on the listing itself.
func TagOrStatic(tags map[string]Tag, l models.Listing) string {
	if t, ok := tags[l.ID]; ok {
		return string(t)
	}
	return l.Tag
}
