package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/geo"
	"listing-catalog/internal/localize"
	"listing-catalog/internal/models"
	"listing-catalog/internal/related"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	db           *gorm.DB
	poolRadiusKm float64
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db, poolRadiusKm: related.DefaultRadiusKm}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db, poolRadiusKm: related.DefaultRadiusKm}
}

// SetPoolRadius sets the matching radius the residential candidate pool must cover.
func (gdb *GormDB) SetPoolRadius(km float64) {
	if km > 0 {
		gdb.poolRadiusKm = km
	}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Listing{},
		&models.ListingEvent{},
	)
}

// Select runs the count and the page query in one transaction so both see the same snapshot.
func (gdb *GormDB) Select(ctx context.Context, req catalog.SelectRequest) (catalog.SelectResult, error) {
	var res catalog.SelectResult

	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Listing{}).
			Scopes(filterScope(req)).
			Count(&res.TotalCount).Error; err != nil {
			return fmt.Errorf("failed to count listings: %w", err)
		}

		if res.TotalCount == 0 || req.Offset >= int(res.TotalCount) {
			res.Rows = []models.Listing{}
			return nil
		}

		return tx.Scopes(pageScope(req)).Find(&res.Rows).Error
	})
	if err != nil {
		return catalog.SelectResult{}, err
	}
	return res, nil
}

// filterScope applies status and filter predicates.
func filterScope(req catalog.SelectRequest) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		f := req.Filters
		if req.Status != "" {
			db = db.Where("status = ?", req.Status)
		}
		if f.ListingType != "" {
			db = db.Where("listing_type = ?", f.ListingType)
		}
		if f.SubCategory != "" {
			db = db.Where("sub_category = ?", f.SubCategory)
		}
		if f.MinPrice != nil {
			db = db.Where("price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			db = db.Where("price <= ?", *f.MaxPrice)
		}
		if f.MinBedrooms != nil {
			db = db.Where("bedrooms >= ?", *f.MinBedrooms)
		}
		if f.MinBathrooms != nil {
			db = db.Where("bathrooms >= ?", *f.MinBathrooms)
		}
		if f.Region != "" {
			db = db.Where("region = ?", f.Region)
		}
		if f.Province != "" {
			db = db.Where("province = ?", f.Province)
		}
		if f.Municipality != "" {
			db = db.Where("municipality = ?", f.Municipality)
		}
		if term := f.SearchTerm(); term != "" {
			pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
			db = db.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?)",
				pattern, pattern, pattern)
		}
		return db
	}
}

func pageScope(req catalog.SelectRequest) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Listing{}).Scopes(filterScope(req)).Order(orderClause(req.Sort))
		if req.Limit > 0 {
			db = db.Limit(req.Limit)
		}
		if req.Offset > 0 {
			db = db.Offset(req.Offset)
		}
		return db
	}
}

// orderClause maps a sort order to MySQL ORDER BY. CASE puts NULL sizes last
// in both directions; id breaks ties.
func orderClause(sort catalog.SortOrder) string {
	switch sort {
	case catalog.SortPriceAsc:
		return "price ASC, id ASC"
	case catalog.SortPriceDesc:
		return "price DESC, id ASC"
	case catalog.SortDateAsc:
		return "created_at ASC, id ASC"
	case catalog.SortSizeAsc:
		return "CASE WHEN size IS NULL THEN 1 ELSE 0 END, size ASC, id ASC"
	case catalog.SortSizeDesc:
		return "CASE WHEN size IS NULL THEN 1 ELSE 0 END, size DESC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetListing retrieves a listing by ID
func (gdb *GormDB) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	err := gdb.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CandidatePool loads available listings in the focal listing's bucket.
// Geolocated residential listings only look at the surrounding geohash cells.
func (gdb *GormDB) CandidatePool(ctx context.Context, focal models.Listing) ([]models.Listing, error) {
	var pool []models.Listing
	err := gdb.db.WithContext(ctx).Scopes(poolScope(focal, gdb.poolRadiusKm)).Find(&pool).Error
	return pool, err
}

func poolScope(focal models.Listing, radiusKm float64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		bucket := related.BucketOf(focal.SubCategory)
		db = db.Model(&models.Listing{}).
			Where("status = ?", models.ListingStatusAvailable).
			Where("sub_category IN ?", related.SubCategories(bucket)).
			Where("id <> ?", focal.ID)

		lat, lng, ok := focal.Coordinates()
		if bucket != related.BucketResidential || !ok {
			return db
		}

		cells := geo.Cells(lat, lng, geo.NearbyPrecision(lat, radiusKm))
		conds := make([]string, len(cells))
		args := make([]interface{}, len(cells))
		for i, cell := range cells {
			conds[i] = "geohash LIKE ?"
			args[i] = cell + "%"
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// ListAvailable retrieves all available listings
func (gdb *GormDB) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := gdb.db.WithContext(ctx).
		Where("status = ?", models.ListingStatusAvailable).
		Order("created_at DESC").
		Find(&listings).Error
	return listings, err
}

type eventCount struct {
	ListingID string
	Count     int
}

// CountEventsInWindow counts events of one type per listing over the trailing windowDays.
func (gdb *GormDB) CountEventsInWindow(ctx context.Context, eventType models.EventType, windowDays int) (map[string]int, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	var rows []eventCount
	err := gdb.db.WithContext(ctx).
		Model(&models.ListingEvent{}).
		Select("listing_id, COUNT(*) AS count").
		Where("event_type = ? AND created_at >= ?", eventType, since).
		Group("listing_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.ListingID] = r.Count
	}
	return counts, nil
}

func eventsBefore(cutoff time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at < ?", cutoff)
	}
}

// CountEventsBefore counts analytics events older than cutoff.
func (gdb *GormDB) CountEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := gdb.db.WithContext(ctx).
		Model(&models.ListingEvent{}).
		Scopes(eventsBefore(cutoff)).
		Count(&n).Error
	return n, err
}

// DeleteEventsBefore deletes at most batchSize events older than cutoff.
func (gdb *GormDB) DeleteEventsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	res := gdb.db.WithContext(ctx).
		Scopes(eventsBefore(cutoff)).
		Limit(batchSize).
		Delete(&models.ListingEvent{})
	return res.RowsAffected, res.Error
}

// SaveListing saves or updates a listing (upsert by id)
func (gdb *GormDB) SaveListing(ctx context.Context, l *models.Listing) error {
	if l.ID == "" {
		return errors.New("listing id is required")
	}
	prepareForSave(l)

	db := gdb.db.WithContext(ctx)
	var existing models.Listing
	result := db.Where("id = ?", l.ID).First(&existing)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return db.Create(l).Error
	} else if result.Error != nil {
		return result.Error
	}

	// Keep original CreatedAt
	l.CreatedAt = existing.CreatedAt
	return db.Save(l).Error
}

// prepareForSave fills defaults, the canonical municipality and the geohash
// before a write.
func prepareForSave(l *models.Listing) {
	if l.Status == "" {
		l.Status = models.ListingStatusAvailable
	}
	if l.Municipality != "" {
		l.Municipality = localize.CanonicalMunicipality(l.Municipality)
	}
	if lat, lng, ok := l.Coordinates(); ok {
		l.Geohash = geo.Encode(lat, lng)
	} else {
		l.Geohash = ""
	}
}

// ListingStats is the admin overview.
type ListingStats struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	BySubCategory map[string]int64 `json:"by_sub_category"`
	Events7d      int64            `json:"events_7d"`
}

type groupCount struct {
	Key   string
	Count int64
}

// GetStats aggregates listing counts.
func (gdb *GormDB) GetStats(ctx context.Context) (*ListingStats, error) {
	db := gdb.db.WithContext(ctx)
	stats := &ListingStats{
		ByStatus:      make(map[string]int64),
		BySubCategory: make(map[string]int64),
	}

	if err := db.Model(&models.Listing{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	for column, target := range map[string]map[string]int64{
		"status":       stats.ByStatus,
		"sub_category": stats.BySubCategory,
	} {
		var rows []groupCount
		err := db.Model(&models.Listing{}).
			Select(column + " AS `key`, COUNT(*) AS count").
			Group(column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to group by %s: %w", column, err)
		}
		for _, r := range rows {
			target[r.Key] = r.Count
		}
	}

	since := time.Now().AddDate(0, 0, -7)
	if err := db.Model(&models.ListingEvent{}).Where("created_at >= ?", since).Count(&stats.Events7d).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
