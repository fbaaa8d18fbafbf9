package database

import (
	"context"
	"fmt"
	"time"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/config"
	"listing-catalog/internal/models"
)

// Store is the full surface shared by the MySQL and PostgreSQL backends.
type Store interface {
	catalog.Store
	catalog.Finder
	catalog.PoolLoader
	ListAvailable(ctx context.Context) ([]models.Listing, error)
	CountEventsInWindow(ctx context.Context, eventType models.EventType, windowDays int) (map[string]int, error)
	CountEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	SaveListing(ctx context.Context, l *models.Listing) error
	GetStats(ctx context.Context) (*ListingStats, error)
	SetPoolRadius(km float64)
	InitSchema() error
	Close() error
}

var (
	_ Store = (*GormDB)(nil)
	_ Store = (*DB)(nil)
)

// Open connects to the backend selected by cfg.Type ("mysql" or "postgres").
func Open(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Type {
	case "postgres":
		pg := cfg.Postgres
		db, err := NewDB(pg.Host, pg.PortString(), pg.User, pg.Password, pg.Database, pg.SSLMode)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "mysql", "":
		my := cfg.MySQL
		db, err := NewGormDB(my.Host, my.PortString(), my.User, my.Password, my.Database)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
}
