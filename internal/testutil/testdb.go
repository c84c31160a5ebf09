// Package testutil builds throwaway infrastructure for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/database"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database in t.TempDir().
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		Name:     filepath.Join(t.TempDir(), "bank.db"),
		LogLevel: "silent",
	}
	db, err := database.Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

// Config returns defaults suitable for tests: local locks, no loan delay,
// no Kafka, a fixed JWT secret and one superuser of each role.
func Config(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Database.Driver = "sqlite"
	cfg.Lock.Backend = "local"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.Superusers = []config.SuperuserSpec{
		{ID: "admin", Name: "System Administrator", Role: "admin", Password: "admin123"},
		{ID: "manager", Name: "Branch Manager", Role: "manager", Password: "manager123"},
	}
	cfg.Business.LoanApprovalDelay = 0
	cfg.Kafka.Enabled = false
	cfg.Business.OutboxInterval = 10 * time.Millisecond
	return cfg
}
