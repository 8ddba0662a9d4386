package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.SnapshotInterval != 30*time.Second {
		t.Fatalf("expected 30s snapshot interval, got %v", cfg.SnapshotInterval)
	}
	if cfg.NoiseFloorM != 2.0 {
		t.Fatalf("expected 2m noise floor, got %v", cfg.NoiseFloorM)
	}
	if cfg.VerticalAccuracyMaxM != 50.0 {
		t.Fatalf("expected 50m vertical gate, got %v", cfg.VerticalAccuracyMaxM)
	}
	if cfg.SplitUnitM != 1000.0 {
		t.Fatalf("expected 1km split unit, got %v", cfg.SplitUnitM)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SNAPSHOT_INTERVAL", "10s")
	t.Setenv("NOISE_FLOOR_M", "3.5")
	t.Setenv("INCLUDE_PARTIAL_SPLIT", "true")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.SnapshotInterval != 10*time.Second {
		t.Fatalf("expected override interval, got %v", cfg.SnapshotInterval)
	}
	if cfg.NoiseFloorM != 3.5 {
		t.Fatalf("expected override noise floor, got %v", cfg.NoiseFloorM)
	}
	if !cfg.IncludePartialSplit {
		t.Fatalf("expected partial split override")
	}
}
