package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "DISTRIBUTION_ITEM_DELAY", "DISTRIBUTION_ITEM_TIMEOUT",
		"DISTRIBUTION_LOG_FILE", "LEDGER_MIRROR", "DB_BUSY_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "investments.db" {
		t.Errorf("Expected default database path, got %q", cfg.Database.Path)
	}
	if cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Expected 5s busy timeout, got %v", cfg.Database.BusyTimeout)
	}
	if cfg.Distribution.ItemDelay != 100*time.Millisecond {
		t.Errorf("Expected 100ms item delay, got %v", cfg.Distribution.ItemDelay)
	}
	if cfg.Distribution.ItemTimeout != 30*time.Second {
		t.Errorf("Expected 30s item timeout, got %v", cfg.Distribution.ItemTimeout)
	}
	if cfg.Distribution.RunLogFile != "profit_distribution.log" {
		t.Errorf("Expected default run log, got %q", cfg.Distribution.RunLogFile)
	}
	if cfg.Mirror.Backend != "none" {
		t.Errorf("Expected no mirror, got %q", cfg.Mirror.Backend)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/other.db")
	t.Setenv("DISTRIBUTION_ITEM_DELAY", "250ms")
	t.Setenv("LEDGER_MIRROR", "Formance")
	t.Setenv("FORMANCE_LEDGER", "profits")
	t.Setenv("CREATE_DUMMY_USERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("Expected overridden path, got %q", cfg.Database.Path)
	}
	if cfg.Distribution.ItemDelay != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.Distribution.ItemDelay)
	}
	if cfg.Mirror.Backend != "formance" || cfg.Mirror.Formance.LedgerName != "profits" {
		t.Errorf("Unexpected mirror config %+v", cfg.Mirror)
	}
	if !cfg.Database.CreateDummyUsers {
		t.Error("Expected dummy users enabled")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("DISTRIBUTION_ITEM_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid duration")
	}

	t.Setenv("DISTRIBUTION_ITEM_TIMEOUT", "")
	t.Setenv("LEDGER_MIRROR", "kafka")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown mirror backend")
	}

	t.Setenv("LEDGER_MIRROR", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "ten")
	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid integer")
	}

	t.Setenv("DB_MAX_OPEN_CONNS", "")
	t.Setenv("CREATE_DUMMY_USERS", "maybe")
	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid boolean")
	}
}
