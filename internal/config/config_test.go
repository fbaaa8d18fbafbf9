package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Catalog.PageSize != 24 || cfg.Catalog.RelatedLimit != 4 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Database.Type != "mysql" {
		t.Errorf("db type = %q", cfg.Database.Type)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
database:
  type: postgres
  postgres:
    host: pg.internal
    sslmode: require
catalog:
  radius_km: 5
badges:
  top_n: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_TYPE", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	pg := cfg.Database.Postgres
	if pg.Host != "pg.internal" || pg.SSLMode != "require" || pg.Port != 6432 {
		t.Errorf("postgres = %+v", pg)
	}
	// untouched keys keep their defaults
	if pg.User != "catalog_user" || cfg.Catalog.PageSize != 24 {
		t.Errorf("defaults lost: %+v %+v", pg, cfg.Catalog)
	}
	if cfg.Catalog.RadiusKm != 5 || cfg.Badges.TopN != 3 {
		t.Errorf("catalog = %+v badges = %+v", cfg.Catalog, cfg.Badges)
	}
	if !cfg.Cache.Redis.Enabled || cfg.Cache.Redis.URL != "redis://cache:6379/1" {
		t.Errorf("redis = %+v", cfg.Cache.Redis)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestBadgeWindows(t *testing.T) {
	b := DefaultConfig().Badges
	activity, newWindow, updated, gap := b.Windows()
	if activity != 7*24*time.Hour || newWindow != 14*24*time.Hour || updated != 3*24*time.Hour || gap != 24*time.Hour {
		t.Errorf("windows = %v %v %v %v", activity, newWindow, updated, gap)
	}
}

func TestPortString(t *testing.T) {
	if got := (&MySQLConfig{Port: 3306}).PortString(); got != "3306" {
		t.Errorf("got %q", got)
	}
	if got := (&PostgresConfig{}).PortString(); got != "" {
		t.Errorf("got %q", got)
	}
}
