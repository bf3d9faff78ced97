package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "CORRELATION_WINDOW", "WORKERS", "MIN_CARD_YEAR", "ALLOW_MISSING_YEAR"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.StoreDriver != "none" {
		t.Errorf("StoreDriver: got %q, want none", cfg.StoreDriver)
	}
	if cfg.CorrelationWindow != 400 {
		t.Errorf("CorrelationWindow: got %d, want 400", cfg.CorrelationWindow)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers: got %d, want 4", cfg.Workers)
	}
	if cfg.MinCardYear != 1869 {
		t.Errorf("MinCardYear: got %d, want 1869", cfg.MinCardYear)
	}
	if cfg.AllowMissingYear {
		t.Error("AllowMissingYear: got true, want false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("CORRELATION_WINDOW", "250")
	t.Setenv("WORKERS", "not-a-number")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("ALLOW_MISSING_YEAR", "true")

	cfg := Load()
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver: got %q, want sqlite", cfg.StoreDriver)
	}
	if cfg.CorrelationWindow != 250 {
		t.Errorf("CorrelationWindow: got %d, want 250", cfg.CorrelationWindow)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers: got %d, want fallback 4", cfg.Workers)
	}
	if !cfg.AllowMissingYear {
		t.Error("AllowMissingYear: got false, want true")
	}
	if !strings.Contains(cfg.DSN(), "host=db.internal") {
		t.Errorf("DSN() = %q; want host=db.internal", cfg.DSN())
	}
}
