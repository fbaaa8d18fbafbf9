package catalog

import (
	"context"
	"log/slog"
	"time"

	"listing-catalog/internal/models"
)

const DefaultPageSize = 24

// Pagination describes the window returned by Query.
type Pagination struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	TotalCount      int64 `json:"total_count"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

// NewPagination computes page metadata. pageSize must be at least 1.
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:            page,
		PageSize:        pageSize,
		TotalCount:      total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// Page is a query result.
type Page struct {
	Items      []models.Listing `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

// Engine answers filtered, sorted, paginated catalog queries.
type Engine struct {
	store  Store
	logger *slog.Logger
}

func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger.With("component", "catalog")}
}

// Query validates its arguments, then performs a single read. Only available
// listings are returned. A page past the end yields no items and valid
// metadata. Storage failures are wrapped in ErrStorageUnavailable and not retried.
func (e *Engine) Query(ctx context.Context, f Filters, sort SortOrder, page, pageSize int) (*Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if sort == "" {
		sort = DefaultSort
	}
	if !sort.Valid() {
		return nil, invalid("sort", "%q is not supported", sort)
	}
	if page < 1 {
		return nil, invalid("page", "must be at least 1")
	}
	if pageSize < 1 {
		return nil, invalid("page_size", "must be at least 1")
	}

	start := time.Now()
	res, err := e.store.Select(ctx, SelectRequest{
		Filters: f,
		Status:  models.ListingStatusAvailable,
		Sort:    sort,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		e.logger.Error("select failed", "error", err)
		return nil, unavailable(err)
	}

	items := res.Rows
	if items == nil {
		items = []models.Listing{}
	}

	e.logger.Debug("query",
		"duration_ms", time.Since(start).Milliseconds(),
		"total", res.TotalCount,
		"page", page,
		"sort", sort,
	)

	return &Page{
		Items:      items,
		Pagination: NewPagination(page, pageSize, res.TotalCount),
	}, nil
}
