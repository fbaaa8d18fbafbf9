package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Badges    BadgesConfig    `yaml:"badges"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AdminToken     string   `yaml:"admin_token"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
}

// CacheConfig contains result cache settings
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// CatalogConfig contains query and related-listing settings
type CatalogConfig struct {
	PageSize        int     `yaml:"page_size"`
	RelatedLimit    int     `yaml:"related_limit"`
	RadiusKm        float64 `yaml:"radius_km"`
	PriceWeight     float64 `yaml:"price_weight"`
	DefaultLanguage string  `yaml:"default_language"`
}

// BadgesConfig contains badge classification settings
type BadgesConfig struct {
	TopN              int    `yaml:"top_n"`
	ActivityDays      int    `yaml:"activity_days"`
	NewDays           int    `yaml:"new_days"`
	UpdatedDays       int    `yaml:"updated_days"`
	MinUpdateGapHours int    `yaml:"min_update_gap_hours"`
	RefreshCron       string `yaml:"refresh_cron"`
	ReindexCron       string `yaml:"reindex_cron"`
	CacheTTLMinutes   int    `yaml:"cache_ttl_minutes"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
}

// FallbackConfig contains static fallback and breaker settings
type FallbackConfig struct {
	Enabled             bool `yaml:"enabled"`
	FailureThreshold    int  `yaml:"failure_threshold"`
	ResetTimeoutSeconds int  `yaml:"reset_timeout_seconds"`
}

// CleanupConfig contains analytics event retention settings
type CleanupConfig struct {
	Enabled          bool   `yaml:"enabled"`
	RetentionDays    int    `yaml:"retention_days"`
	MaxDeletionCount int    `yaml:"max_deletion_count"`
	BatchSize        int    `yaml:"batch_size"`
	Schedule         string `yaml:"schedule"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8084",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "mysql",
				Port:     3306,
				User:     "catalog_user",
				Password: "catalog_pass",
				Database: "catalog_db",
			},
			Postgres: PostgresConfig{
				Host:     "db",
				Port:     5432,
				User:     "catalog_user",
				Password: "catalog_pass",
				Database: "catalog_db",
				SSLMode:  "disable",
			},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Enabled: true,
				Host:    "http://meilisearch:7700",
			},
		},
		Cache: CacheConfig{
			Redis: RedisConfig{
				Enabled:    false,
				URL:        "redis://redis:6379/0",
				TTLSeconds: 120,
			},
		},
		Catalog: CatalogConfig{
			PageSize:        24,
			RelatedLimit:    4,
			RadiusKm:        10,
			PriceWeight:     50,
			DefaultLanguage: "es",
		},
		Badges: BadgesConfig{
			TopN:              10,
			ActivityDays:      7,
			NewDays:           14,
			UpdatedDays:       3,
			MinUpdateGapHours: 24,
			RefreshCron:       "*/15 * * * *",
			ReindexCron:       "0 3 * * *",
			CacheTTLMinutes:   60,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			RequestsPerHour:   3600,
		},
		Fallback: FallbackConfig{
			Enabled:             true,
			FailureThreshold:    3,
			ResetTimeoutSeconds: 30,
		},
		Cleanup: CleanupConfig{
			Enabled:          true,
			RetentionDays:    90,
			MaxDeletionCount: 5000000,
			BatchSize:        5000,
			Schedule:         "04:30",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "color",
			LogRequests: true,
		},
		Timezone: "Europe/Madrid",
	}
}

// LoadConfig loads .env (if present), then the YAML file on top of the
// defaults, then environment overrides.
func LoadConfig(filepath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// Start with default config
	config := DefaultConfig()

	data, err := os.ReadFile(filepath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

// applyEnv lets deployment environment variables override file values.
func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.AdminToken = getEnv("ADMIN_TOKEN", c.Server.AdminToken)
	c.Database.Type = getEnvOrConfig(c.Database.Type, "DB_TYPE", "mysql")

	db := &c.Database.MySQL
	if c.Database.Type == "postgres" {
		pg := &c.Database.Postgres
		pg.Host = getEnv("DB_HOST", pg.Host)
		pg.Port = getEnvInt("DB_PORT", pg.Port)
		pg.User = getEnv("DB_USER", pg.User)
		pg.Password = getEnv("DB_PASSWORD", pg.Password)
		pg.Database = getEnv("DB_NAME", pg.Database)
	} else {
		db.Host = getEnv("DB_HOST", db.Host)
		db.Port = getEnvInt("DB_PORT", db.Port)
		db.User = getEnv("DB_USER", db.User)
		db.Password = getEnv("DB_PASSWORD", db.Password)
		db.Database = getEnv("DB_NAME", db.Database)
	}

	c.Search.Meilisearch.Host = getEnv("MEILISEARCH_HOST", c.Search.Meilisearch.Host)
	c.Search.Meilisearch.APIKey = getEnv("MEILISEARCH_KEY", c.Search.Meilisearch.APIKey)
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.Cache.Redis.URL = url
		c.Cache.Redis.Enabled = true
	}
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns environment variable if set, otherwise config value, otherwise default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// CacheTTL returns the result cache TTL as a duration
func (c *RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ResetTimeout returns the breaker reset timeout as a duration
func (c *FallbackConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSeconds) * time.Second
}

// TagTTL returns how long a computed badge map stays valid
func (c *BadgesConfig) TagTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Windows returns the activity, new and updated windows and the minimum update gap
func (c *BadgesConfig) Windows() (activity, newWindow, updated, minGap time.Duration) {
	return days(c.ActivityDays), days(c.NewDays), days(c.UpdatedDays),
		time.Duration(c.MinUpdateGapHours) * time.Hour
}

// PortString returns the configured port, empty when unset
func (c *MySQLConfig) PortString() string {
	return portString(c.Port)
}

func (c *PostgresConfig) PortString() string {
	return portString(c.Port)
}

func portString(port int) string {
	if port <= 0 {
		return ""
	}
	return strconv.Itoa(port)
}
