package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-catalog/internal/badges"
	"listing-catalog/internal/cache"
	"listing-catalog/internal/catalog"
	"listing-catalog/internal/cleanup"
	"listing-catalog/internal/config"
	"listing-catalog/internal/database"
	"listing-catalog/internal/fallback"
	"listing-catalog/internal/handlers"
	"listing-catalog/internal/localize"
	"listing-catalog/internal/logging"
	"listing-catalog/internal/ratelimit"
	"listing-catalog/internal/related"
	"listing-catalog/internal/scheduler"
	"listing-catalog/internal/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	jobBadgeRefresh  = "badge-refresh"
	jobSearchReindex = "search-reindex"
	jobLimiterSweep  = "ratelimit-sweep"
	jobEventCleanup  = "event-cleanup"
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "/app/config/catalog.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config, using defaults", "path", configPath, "error", err)
		appConfig = config.DefaultConfig()
	}

	logger := logging.New(logging.Options{
		Level:  appConfig.Logging.Level,
		Format: appConfig.Logging.Format,
	})
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath, "db_type", appConfig.Database.Type)

	loc, err := time.LoadLocation(appConfig.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using local time", "timezone", appConfig.Timezone, "error", err)
		loc = time.Local
	}

	db, err := database.Open(appConfig.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetPoolRadius(appConfig.Catalog.RadiusKm)

	if err := db.InitSchema(); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Read path: database -> circuit breaker -> result cache
	var guarded fallback.PrimaryStore = db
	var breaker *fallback.CircuitBreaker
	var fallbackBackend *handlers.Backend

	ranker := related.Ranker{
		Limit:       appConfig.Catalog.RelatedLimit,
		RadiusKm:    appConfig.Catalog.RadiusKm,
		PriceWeight: appConfig.Catalog.PriceWeight,
	}

	if appConfig.Fallback.Enabled {
		breaker = fallback.NewCircuitBreaker(
			appConfig.Fallback.FailureThreshold,
			appConfig.Fallback.ResetTimeout(),
			logger,
		)
		guarded = fallback.NewGuardedStore(db, breaker)

		bundle, err := fallback.Load()
		if err != nil {
			logger.Error("failed to load fallback bundle", "error", err)
			os.Exit(1)
		}
		fallbackBackend = &handlers.Backend{
			Engine:  catalog.NewEngine(bundle, logger.With("source", "fallback")),
			Details: catalog.NewDetailService(bundle, bundle, ranker, logger.With("source", "fallback")),
		}
		logger.Info("fallback bundle loaded", "listings", bundle.Len())
	}

	var selectStore catalog.Store = guarded
	var tagStore badges.TagStore = badges.NewMemoryTagStore(appConfig.Badges.TagTTL())

	if appConfig.Cache.Redis.Enabled {
		redisCache, err := cache.New(appConfig.Cache.Redis.URL, appConfig.Cache.Redis.CacheTTL())
		if err != nil {
			logger.Warn("redis unavailable, running without result cache", "error", err)
		} else {
			defer redisCache.Close()
			selectStore = cache.NewCachedStore(guarded, redisCache, logger)
			tagStore = cache.NewTagCache(redisCache, appConfig.Badges.TagTTL())
			logger.Info("redis cache enabled")
		}
	}

	// Badges
	activity, newWindow, updated, minGap := appConfig.Badges.Windows()
	classifier := badges.NewClassifier()
	classifier.TopN = appConfig.Badges.TopN
	classifier.ActivityWindow = activity
	classifier.NewWindow = newWindow
	classifier.UpdatedWindow = updated
	classifier.MinUpdateGap = minGap
	badgeService := badges.NewService(classifier, db, db, tagStore, logger)

	// Meilisearch
	var searchClient *search.SearchClient
	if appConfig.Search.Meilisearch.Enabled {
		searchClient = search.NewSearchClient(
			appConfig.Search.Meilisearch.Host,
			appConfig.Search.Meilisearch.APIKey,
			logger,
		)
		if err := searchClient.InitIndex(); err != nil {
			logger.Warn("failed to initialize search index", "error", err)
		}
	}

	// Initialize rate limiter
	rateLimiter := ratelimit.NewRateLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.Enabled,
	)

	// Scheduler
	appScheduler := scheduler.NewScheduler(loc, logger)
	mustAddJob(appScheduler, logger, scheduler.Job{
		Name:    jobBadgeRefresh,
		Spec:    appConfig.Badges.RefreshCron,
		Timeout: 2 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := badgeService.Refresh(ctx)
			return err
		},
	})
	if searchClient != nil {
		mustAddJob(appScheduler, logger, scheduler.Job{
			Name:    jobSearchReindex,
			Spec:    appConfig.Badges.ReindexCron,
			Timeout: 10 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := searchClient.Reindex(ctx, db)
				return err
			},
		})
	}
	mustAddJob(appScheduler, logger, scheduler.Job{
		Name: jobLimiterSweep,
		Spec: "@every 10m",
		Run: func(context.Context) error {
			rateLimiter.Sweep()
			return nil
		},
	})

	cleanupService := cleanup.NewService(db, logger)
	cleanupConfig := cleanup.Config{
		RetentionDays:    appConfig.Cleanup.RetentionDays,
		MaxDeletionCount: appConfig.Cleanup.MaxDeletionCount,
		BatchSize:        appConfig.Cleanup.BatchSize,
	}
	if appConfig.Cleanup.Enabled {
		mustAddJob(appScheduler, logger, scheduler.Job{
			Name:    jobEventCleanup,
			Spec:    appConfig.Cleanup.Schedule,
			Timeout: 30 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := cleanupService.PurgeEvents(ctx, cleanupConfig, classifier.ActivityWindowDays())
				return err
			},
		})
	}
	appScheduler.Start()
	defer appScheduler.Stop()

	// Handlers
	listingConfig := handlers.ListingHandlerConfig{
		Primary: handlers.Backend{
			Engine:  catalog.NewEngine(selectStore, logger),
			Details: catalog.NewDetailService(guarded, guarded, ranker, logger),
		},
		Fallback: fallbackBackend,
		Tags:     badgeService,
		Resolver: localize.NewResolver(appConfig.Catalog.DefaultLanguage),
		PageSize: appConfig.Catalog.PageSize,
		Logger:   logger,
	}
	if searchClient != nil {
		listingConfig.Facets = searchClient
	}
	listingHandler := handlers.NewListingHandler(listingConfig)
	adminHandler := handlers.NewAdminHandler(db, appScheduler, breaker, rateLimiter, logger).
		WithCleanup(cleanupService, cleanupConfig, classifier.ActivityWindowDays())

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if appConfig.Logging.LogRequests {
		r.Use(handlers.RequestLogger(logger))
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language", "Authorization", handlers.TraceHeader},
		ExposeHeaders:    []string{handlers.TraceHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Routes
	r.GET("/health", healthCheck)

	api := r.Group("/api", handlers.RateLimit(rateLimiter))
	listingHandler.Register(api)

	// Admin API routes
	admin := r.Group("/api/admin", handlers.AdminAuth(appConfig.Server.AdminToken))
	adminHandler.Register(admin)
	if appConfig.Server.AdminToken == "" {
		logger.Warn("admin routes are not protected, set ADMIN_TOKEN")
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "port", appConfig.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func mustAddJob(s *scheduler.Scheduler, logger *slog.Logger, job scheduler.Job) {
	if err := s.Add(job); err != nil {
		logger.Error("failed to register job", "job", job.Name, "error", err)
		os.Exit(1)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
