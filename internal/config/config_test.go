package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KINOTEKA_ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("KINOTEKA_REFRESH_TOKEN_SECRET", "r-secret")
	t.Setenv("KINOTEKA_PG_DSN", "postgres://localhost/kinoteka")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr default: %s", cfg.Addr)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("redis default: %s", cfg.RedisAddr)
	}
	if cfg.AccessLifetime != time.Hour {
		t.Fatalf("access lifetime default: %v", cfg.AccessLifetime)
	}
	if cfg.RefreshLifetime != 7*24*time.Hour {
		t.Fatalf("refresh lifetime default: %v", cfg.RefreshLifetime)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KINOTEKA_ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("KINOTEKA_REFRESH_TOKEN_SECRET", "r-secret")
	t.Setenv("KINOTEKA_PG_DSN", "postgres://localhost/kinoteka")
	t.Setenv("KINOTEKA_ADDR", ":9090")
	t.Setenv("KINOTEKA_ACCESS_TOKEN_LIFETIME_HOURS", "2")
	t.Setenv("KINOTEKA_RATE_BURST", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr override: %s", cfg.Addr)
	}
	if cfg.AccessLifetime != 2*time.Hour {
		t.Fatalf("access lifetime override: %v", cfg.AccessLifetime)
	}
	if cfg.RateBurst != 5 {
		t.Fatalf("rate burst override: %d", cfg.RateBurst)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("KINOTEKA_ACCESS_TOKEN_SECRET", "")
	t.Setenv("KINOTEKA_REFRESH_TOKEN_SECRET", "")
	t.Setenv("KINOTEKA_PG_DSN", "postgres://localhost/kinoteka")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without secrets")
	}

	t.Setenv("KINOTEKA_ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("KINOTEKA_REFRESH_TOKEN_SECRET", "r-secret")
	t.Setenv("KINOTEKA_PG_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DSN")
	}
}
