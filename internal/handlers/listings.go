package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"listing-catalog/internal/badges"
	"listing-catalog/internal/catalog"
	"listing-catalog/internal/localize"
	"listing-catalog/internal/models"
	"listing-catalog/internal/search"

	"github.com/gin-gonic/gin"
)

const (
	sourcePrimary  = "primary"
	sourceFallback = "fallback"

	MaxPageSize = 100
)

// Backend is one place listings can be read from.
type Backend struct {
	Engine  *catalog.Engine
	Details *catalog.DetailService
}

// TagSource supplies the computed badge map.
type TagSource interface {
	Tags(ctx context.Context) (map[string]badges.Tag, error)
}

// FacetSource counts filter values for the current filters.
type FacetSource interface {
	Facets(f catalog.Filters) (search.Facets, error)
}

// ListingHandler serves the public catalog endpoints
type ListingHandler struct {
	primary  Backend
	fallback *Backend
	tags     TagSource
	facets   FacetSource
	resolver localize.Resolver
	pageSize int
	logger   *slog.Logger
}

// ListingHandlerConfig holds the optional collaborators of a ListingHandler.
// Fallback, Tags and Facets may be nil.
type ListingHandlerConfig struct {
	Primary  Backend
	Fallback *Backend
	Tags     TagSource
	Facets   FacetSource
	Resolver localize.Resolver
	PageSize int
	Logger   *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(cfg ListingHandlerConfig) *ListingHandler {
	if cfg.PageSize < 1 {
		cfg.PageSize = catalog.DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ListingHandler{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		tags:     cfg.Tags,
		facets:   cfg.Facets,
		resolver: cfg.Resolver,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger.With("component", "http"),
	}
}

// Register mounts the public routes on r.
func (h *ListingHandler) Register(r gin.IRouter) {
	r.GET("/listings", h.ListListings)
	r.GET("/listings/:id", h.GetListing)
	r.GET("/badges", h.GetBadges)
	r.GET("/facets", h.GetFacets)
}

// ListListings returns one page of available listings matching the query.
func (h *ListingHandler) ListListings(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	sort, err := catalog.ParseSort(c.Query("sort"))
	if err != nil {
		badRequest(c, err)
		return
	}
	page, pageSize, err := h.parsePaging(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	source := sourcePrimary
	result, err := h.primary.Engine.Query(ctx, filters, sort, page, pageSize)
	if errors.Is(err, catalog.ErrStorageUnavailable) && h.fallback != nil {
		h.logger.Warn("serving listings from fallback bundle", "error", err, "trace_id", traceID(c))
		source = sourceFallback
		result, err = h.fallback.Engine.Query(ctx, filters, sort, page, pageSize)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	b := h.viewBuilder(c, source)
	c.JSON(http.StatusOK, gin.H{
		"items":      b.views(result.Items),
		"pagination": result.Pagination,
		"source":     source,
	})
}

// GetListing returns one available listing with its related listings.
func (h *ListingHandler) GetListing(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	source := sourcePrimary
	detail, err := h.primary.Details.Get(ctx, id)
	if errors.Is(err, catalog.ErrStorageUnavailable) && h.fallback != nil {
		h.logger.Warn("serving listing from fallback bundle", "listing_id", id, "error", err, "trace_id", traceID(c))
		source = sourceFallback
		detail, err = h.fallback.Details.Get(ctx, id)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	b := h.viewBuilder(c, source)
	c.JSON(http.StatusOK, gin.H{
		"listing": b.view(detail.Listing),
		"related": b.views(detail.Related),
		"source":  source,
	})
}

// GetBadges returns the computed badge map keyed by listing ID.
func (h *ListingHandler) GetBadges(c *gin.Context) {
	if h.tags == nil {
		c.JSON(http.StatusOK, gin.H{"badges": map[string]badges.Tag{}})
		return
	}
	tags, err := h.tags.Tags(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load badges", "error", err, "trace_id", traceID(c))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "badges unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": tags})
}

// GetFacets returns value counts for the filter fields under the current filters.
func (h *ListingHandler) GetFacets(c *gin.Context) {
	if h.facets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}
	filters, err := parseFilters(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := filters.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	facets, err := h.facets.Facets(filters)
	if err != nil {
		h.logger.Error("facet search failed", "error", err, "trace_id", traceID(c))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "facets unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"facets": facets})
}

// viewBuilder resolves the request language and, for primary reads, the
// computed badges. Fallback responses keep the static tags of the bundle.
func (h *ListingHandler) viewBuilder(c *gin.Context, source string) viewBuilder {
	lang := localize.PreferredLanguage(c.Query("lang"), c.GetHeader("Accept-Language"))
	if lang == "" {
		lang = h.resolver.DefaultLanguage()
	}

	var tags map[string]badges.Tag
	if source == sourcePrimary && h.tags != nil {
		var err error
		tags, err = h.tags.Tags(c.Request.Context())
		if err != nil {
			h.logger.Warn("badges unavailable, using static tags", "error", err, "trace_id", traceID(c))
		}
	}
	return viewBuilder{resolver: h.resolver, lang: lang, tags: tags}
}

func (h *ListingHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidFilterValue):
		badRequest(c, err)
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err, "trace_id", traceID(c))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog temporarily unavailable"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseFilters builds catalog filters from query parameters. Malformed
// numbers are reported as invalid filter values; range checks are left to
// Filters.Validate.
func parseFilters(c *gin.Context) (catalog.Filters, error) {
	f := catalog.Filters{
		ListingType:  models.ListingType(strings.TrimSpace(c.Query("listing_type"))),
		SubCategory:  models.SubCategory(strings.TrimSpace(c.Query("sub_category"))),
		Region:       strings.TrimSpace(c.Query("region")),
		Province:     strings.TrimSpace(c.Query("province")),
		Municipality: strings.TrimSpace(c.Query("municipality")),
		Search:       c.Query("search"),
	}

	var err error
	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return f, err
	}
	if f.MinBedrooms, err = queryInt(c, "min_bedrooms"); err != nil {
		return f, err
	}
	if f.MinBathrooms, err = queryInt(c, "min_bathrooms"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *ListingHandler) parsePaging(c *gin.Context) (page, pageSize int, err error) {
	page, pageSize = 1, h.pageSize
	if v, err := queryInt(c, "page"); err != nil {
		return 0, 0, err
	} else if v != nil {
		page = *v
	}
	if v, err := queryInt(c, "page_size"); err != nil {
		return 0, 0, err
	} else if v != nil {
		pageSize = *v
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, nil
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s %q is not a number", catalog.ErrInvalidFilterValue, key, raw)
	}
	return &v, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not an integer", catalog.ErrInvalidFilterValue, key, raw)
	}
	return &v, nil
}
