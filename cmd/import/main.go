package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"listing-catalog/internal/config"
	"listing-catalog/internal/database"
	"listing-catalog/internal/fallback"
	"listing-catalog/internal/logging"
	"listing-catalog/internal/models"
	"listing-catalog/internal/search"
)

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "/app/config/catalog.yaml"), "Path to the YAML config")
	file := flag.String("file", "", "Listing bundle to import (defaults to the embedded bundle)")
	reindex := flag.Bool("reindex", false, "Rebuild the search index after importing")
	dryRun := flag.Bool("dry-run", false, "Validate the bundle without writing")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	appConfig, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		Level:  appConfig.Logging.Level,
		Format: appConfig.Logging.Format,
	})

	listings, err := loadBundle(*file)
	if err != nil {
		logger.Error("invalid bundle", "file", *file, "error", err)
		os.Exit(1)
	}
	logger.Info("bundle validated", "listings", len(listings))
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, appConfig, listings, *reindex, logger); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func loadBundle(path string) ([]models.Listing, error) {
	if path == "" {
		return fallback.Embedded()
	}
	return fallback.LoadFile(path)
}

func run(ctx context.Context, cfg *config.Config, listings []models.Listing, reindex bool, logger *slog.Logger) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	saved, failed := 0, 0
	for i := range listings {
		if err := db.SaveListing(ctx, &listings[i]); err != nil {
			logger.Error("failed to save listing", "listing_id", listings[i].ID, "error", err)
			failed++
			continue
		}
		saved++
	}
	logger.Info("import complete", "saved", saved, "failed", failed)

	if reindex {
		if !cfg.Search.Meilisearch.Enabled {
			logger.Warn("reindex requested but search is disabled")
		} else {
			client := search.NewSearchClient(cfg.Search.Meilisearch.Host, cfg.Search.Meilisearch.APIKey, logger)
			if err := client.InitIndex(); err != nil {
				return fmt.Errorf("failed to initialize search index: %w", err)
			}
			n, err := client.Reindex(ctx, db)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			logger.Info("search index rebuilt", "documents", n)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d listings failed", failed, len(listings))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
