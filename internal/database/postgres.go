package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/geo"
	"listing-catalog/internal/models"
	"listing-catalog/internal/related"

	"github.com/lib/pq"
)

type DB struct {
	conn         *sql.DB
	poolRadiusKm float64
}

func NewDB(host, port, user, password, dbname, sslmode string) (*DB, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn, poolRadiusKm: related.DefaultRadiusKm}, nil
}

// SetPoolRadius sets the matching radius the residential candidate pool must cover.
func (db *DB) SetPoolRadius(km float64) {
	if km > 0 {
		db.poolRadiusKm = km
	}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the listings and listing_events tables if they don't exist
func (db *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(64) PRIMARY KEY,
		listing_type VARCHAR(20) NOT NULL,
		sub_category VARCHAR(20) NOT NULL,
		price NUMERIC(14, 2) NOT NULL,
		rent_period VARCHAR(10) NOT NULL DEFAULT '',

		bedrooms INTEGER,
		bathrooms INTEGER,
		size NUMERIC(10, 2),
		plot_size NUMERIC(12, 2),
		roi NUMERIC(6, 2),
		buildable BOOLEAN,
		zone VARCHAR(100) NOT NULL DEFAULT '',

		location TEXT NOT NULL DEFAULT '',
		region VARCHAR(100) NOT NULL DEFAULT '',
		province VARCHAR(100) NOT NULL DEFAULT '',
		municipality VARCHAR(100) NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		geohash VARCHAR(12) NOT NULL DEFAULT '',

		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		features TEXT[] NOT NULL DEFAULT '{}',
		translations JSONB NOT NULL DEFAULT '{}',
		list_translations JSONB NOT NULL DEFAULT '{}',

		tag VARCHAR(30) NOT NULL DEFAULT '',
		views_count BIGINT NOT NULL DEFAULT 0,
		saves_count BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'available',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_listings_status_sub_category ON listings(status, sub_category);
	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	CREATE INDEX IF NOT EXISTS idx_listings_geohash ON listings(geohash text_pattern_ops);

	CREATE TABLE IF NOT EXISTS listing_events (
		id BIGSERIAL PRIMARY KEY,
		listing_id VARCHAR(64) NOT NULL,
		event_type VARCHAR(10) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_event_window ON listing_events(event_type, created_at);
	`
	_, err := db.conn.Exec(query)
	return err
}

const listingColumns = `id, listing_type, sub_category, price, rent_period,
	bedrooms, bathrooms, size, plot_size, roi, buildable, zone,
	location, region, province, municipality, latitude, longitude, geohash,
	title, description, features, translations, list_translations,
	tag, views_count, saves_count, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (models.Listing, error) {
	var (
		l                models.Listing
		bedrooms         sql.NullInt64
		bathrooms        sql.NullInt64
		translations     []byte
		listTranslations []byte
		features         pq.StringArray
	)
	err := row.Scan(
		&l.ID, &l.ListingType, &l.SubCategory, &l.Price, &l.RentPeriod,
		&bedrooms, &bathrooms, &l.Size, &l.PlotSize, &l.ROI, &l.Buildable, &l.Zone,
		&l.Location, &l.Region, &l.Province, &l.Municipality, &l.Latitude, &l.Longitude, &l.Geohash,
		&l.Title, &l.Description, &features, &translations, &listTranslations,
		&l.Tag, &l.ViewsCount, &l.SavesCount, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return l, err
	}

	l.Bedrooms = intPtr(bedrooms)
	l.Bathrooms = intPtr(bathrooms)
	l.Features = []string(features)
	if err := unmarshalJSONB(translations, &l.Translations); err != nil {
		return l, fmt.Errorf("translations: %w", err)
	}
	if err := unmarshalJSONB(listTranslations, &l.ListTranslations); err != nil {
		return l, fmt.Errorf("list_translations: %w", err)
	}
	return l, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func unmarshalJSONB(data []byte, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// queryBuilder collects WHERE conditions with numbered placeholders.
type queryBuilder struct {
	conditions []string
	args       []interface{}
	argID      int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{argID: 1}
}

func (qb *queryBuilder) addCondition(condition, field string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, field, qb.argID))
	qb.args = append(qb.args, arg)
	qb.argID++
}

func (qb *queryBuilder) addFloatMin(field string, min *float64) {
	if min != nil {
		qb.addCondition("%s >= $%d", field, *min)
	}
}

func (qb *queryBuilder) addFloatMax(field string, max *float64) {
	if max != nil {
		qb.addCondition("%s <= $%d", field, *max)
	}
}

func (qb *queryBuilder) addIntMin(field string, min *int) {
	if min != nil {
		qb.addCondition("%s >= $%d", field, *min)
	}
}

func (qb *queryBuilder) addEqual(field string, value string) {
	if value != "" {
		qb.addCondition("%s = $%d", field, value)
	}
}

// addSearch matches one placeholder against several text columns.
func (qb *queryBuilder) addSearch(term string, fields ...string) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", f, qb.argID)
	}
	qb.conditions = append(qb.conditions, "("+strings.Join(parts, " OR ")+")")
	qb.args = append(qb.args, "%"+escapeLike(term)+"%")
	qb.argID++
}

// next reserves a placeholder for a trailing argument such as LIMIT.
func (qb *queryBuilder) next(arg interface{}) string {
	qb.args = append(qb.args, arg)
	p := fmt.Sprintf("$%d", qb.argID)
	qb.argID++
	return p
}

func (qb *queryBuilder) where() string {
	if len(qb.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(qb.conditions, " AND ")
}

func applyFilters(req catalog.SelectRequest) *queryBuilder {
	qb := newQueryBuilder()
	f := req.Filters

	qb.addEqual("status", string(req.Status))
	qb.addEqual("listing_type", string(f.ListingType))
	qb.addEqual("sub_category", string(f.SubCategory))
	qb.addFloatMin("price", f.MinPrice)
	qb.addFloatMax("price", f.MaxPrice)
	qb.addIntMin("bedrooms", f.MinBedrooms)
	qb.addIntMin("bathrooms", f.MinBathrooms)
	qb.addEqual("region", f.Region)
	qb.addEqual("province", f.Province)
	qb.addEqual("municipality", f.Municipality)
	if term := f.SearchTerm(); term != "" {
		qb.addSearch(term, "title", "description", "location")
	}
	return qb
}

func pgOrderClause(sort catalog.SortOrder) string {
	switch sort {
	case catalog.SortPriceAsc:
		return "price ASC, id ASC"
	case catalog.SortPriceDesc:
		return "price DESC, id ASC"
	case catalog.SortDateAsc:
		return "created_at ASC, id ASC"
	case catalog.SortSizeAsc:
		return "size ASC NULLS LAST, id ASC"
	case catalog.SortSizeDesc:
		return "size DESC NULLS LAST, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

// buildSelect returns the count query, the page query and their arguments.
// The count query uses a prefix of pageArgs.
func buildSelect(req catalog.SelectRequest) (countQuery, pageQuery string, countArgs, pageArgs []interface{}) {
	qb := applyFilters(req)
	where := qb.where()
	countQuery = "SELECT COUNT(*) FROM listings " + where
	countArgs = append([]interface{}{}, qb.args...)

	pageQuery = fmt.Sprintf("SELECT %s FROM listings %s ORDER BY %s", listingColumns, where, pgOrderClause(req.Sort))
	if req.Limit > 0 {
		pageQuery += " LIMIT " + qb.next(req.Limit)
	}
	if req.Offset > 0 {
		pageQuery += " OFFSET " + qb.next(req.Offset)
	}
	return countQuery, pageQuery, countArgs, qb.args
}

// Select runs COUNT and the page query inside one read-only transaction.
func (db *DB) Select(ctx context.Context, req catalog.SelectRequest) (catalog.SelectResult, error) {
	countQuery, pageQuery, countArgs, pageArgs := buildSelect(req)

	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return catalog.SelectResult{}, err
	}
	defer tx.Rollback()

	var res catalog.SelectResult
	if err := tx.QueryRowContext(ctx, countQuery, countArgs...).Scan(&res.TotalCount); err != nil {
		return catalog.SelectResult{}, fmt.Errorf("failed to count listings: %w", err)
	}

	res.Rows = []models.Listing{}
	if res.TotalCount > 0 && req.Offset < int(res.TotalCount) {
		res.Rows, err = queryListings(ctx, tx, pageQuery, pageArgs...)
		if err != nil {
			return catalog.SelectResult{}, err
		}
	}

	return res, tx.Commit()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func queryListings(ctx context.Context, q querier, query string, args ...interface{}) ([]models.Listing, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetListing retrieves a listing by ID
func (db *DB) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	query := "SELECT " + listingColumns + " FROM listings WHERE id = $1"
	l, err := scanListing(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// buildPoolQuery mirrors the MySQL candidate pool: same bucket, available,
// and for geolocated residential listings the surrounding geohash cells.
func buildPoolQuery(focal models.Listing, radiusKm float64) (string, []interface{}) {
	bucket := related.BucketOf(focal.SubCategory)
	subCategories := related.SubCategories(bucket)
	names := make([]string, len(subCategories))
	for i, c := range subCategories {
		names[i] = string(c)
	}

	qb := newQueryBuilder()
	qb.addEqual("status", string(models.ListingStatusAvailable))
	qb.addCondition("%s = ANY($%d)", "sub_category", pq.Array(names))
	qb.addCondition("%s <> $%d", "id", focal.ID)

	if lat, lng, ok := focal.Coordinates(); ok && bucket == related.BucketResidential {
		prefixes := make([]string, 0, 9)
		for _, cell := range geo.Cells(lat, lng, geo.NearbyPrecision(lat, radiusKm)) {
			prefixes = append(prefixes, cell+"%")
		}
		qb.addCondition("%s LIKE ANY($%d)", "geohash", pq.Array(prefixes))
	}

	return "SELECT " + listingColumns + " FROM listings " + qb.where(), qb.args
}

func (db *DB) CandidatePool(ctx context.Context, focal models.Listing) ([]models.Listing, error) {
	query, args := buildPoolQuery(focal, db.poolRadiusKm)
	return queryListings(ctx, db.conn, query, args...)
}

func (db *DB) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	query := "SELECT " + listingColumns + " FROM listings WHERE status = $1 ORDER BY created_at DESC"
	return queryListings(ctx, db.conn, query, models.ListingStatusAvailable)
}

func (db *DB) CountEventsInWindow(ctx context.Context, eventType models.EventType, windowDays int) (map[string]int, error) {
	query := `
		SELECT listing_id, COUNT(*)
		FROM listing_events
		WHERE event_type = $1 AND created_at >= $2
		GROUP BY listing_id
	`
	since := time.Now().AddDate(0, 0, -windowDays)

	rows, err := db.conn.QueryContext(ctx, query, string(eventType), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CountEventsBefore counts analytics events older than cutoff.
func (db *DB) CountEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listing_events WHERE created_at < $1`, cutoff).Scan(&n)
	return n, err
}

// DeleteEventsBefore deletes at most batchSize events older than cutoff.
func (db *DB) DeleteEventsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM listing_events
		WHERE id IN (
			SELECT id FROM listing_events WHERE created_at < $1 ORDER BY id LIMIT $2
		)`, cutoff, batchSize)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveListing upserts a listing by id, keeping created_at of an existing row
func (db *DB) SaveListing(ctx context.Context, l *models.Listing) error {
	if l.ID == "" {
		return errors.New("listing id is required")
	}
	prepareForSave(l)

	translations, err := json.Marshal(nonNilMap(l.Translations))
	if err != nil {
		return err
	}
	listTranslations, err := json.Marshal(nonNilListMap(l.ListTranslations))
	if err != nil {
		return err
	}

	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}

	query := `
	INSERT INTO listings (` + listingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
	ON CONFLICT (id) DO UPDATE SET
		listing_type = EXCLUDED.listing_type,
		sub_category = EXCLUDED.sub_category,
		price = EXCLUDED.price,
		rent_period = EXCLUDED.rent_period,
		bedrooms = EXCLUDED.bedrooms,
		bathrooms = EXCLUDED.bathrooms,
		size = EXCLUDED.size,
		plot_size = EXCLUDED.plot_size,
		roi = EXCLUDED.roi,
		buildable = EXCLUDED.buildable,
		zone = EXCLUDED.zone,
		location = EXCLUDED.location,
		region = EXCLUDED.region,
		province = EXCLUDED.province,
		municipality = EXCLUDED.municipality,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		geohash = EXCLUDED.geohash,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		features = EXCLUDED.features,
		translations = EXCLUDED.translations,
		list_translations = EXCLUDED.list_translations,
		tag = EXCLUDED.tag,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at
	`
	_, err = db.conn.ExecContext(ctx, query,
		l.ID, l.ListingType, l.SubCategory, l.Price, l.RentPeriod,
		l.Bedrooms, l.Bathrooms, l.Size, l.PlotSize, l.ROI, l.Buildable, l.Zone,
		l.Location, l.Region, l.Province, l.Municipality, l.Latitude, l.Longitude, l.Geohash,
		l.Title, l.Description, pq.Array(nonNilSlice(l.Features)), string(translations), string(listTranslations),
		l.Tag, l.ViewsCount, l.SavesCount, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

// GetStats aggregates listing counts.
func (db *DB) GetStats(ctx context.Context) (*ListingStats, error) {
	stats := &ListingStats{
		ByStatus:      make(map[string]int64),
		BySubCategory: make(map[string]int64),
	}

	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&stats.Total); err != nil {
		return nil, err
	}

	for column, target := range map[string]map[string]int64{
		"status":       stats.ByStatus,
		"sub_category": stats.BySubCategory,
	} {
		rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("SELECT %s, COUNT(*) FROM listings GROUP BY %s", column, column))
		if err != nil {
			return nil, fmt.Errorf("failed to group by %s: %w", column, err)
		}
		for rows.Next() {
			var key string
			var n int64
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, err
			}
			target[key] = n
		}
		rows.Close()
	}

	since := time.Now().AddDate(0, 0, -7)
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM listing_events WHERE created_at >= $1", since).Scan(&stats.Events7d)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilListMap(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
