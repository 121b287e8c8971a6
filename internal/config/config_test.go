package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LABELKIT_ADDR", "LABELKIT_DB_PATH", "LABELKIT_JWT_SECRET",
		"LABELKIT_JWT_AUDIENCE", "LABELKIT_TOKEN_TTL", "LABELKIT_ADMIN_EMAILS",
		"LABELKIT_RATE_LIMIT", "LABELKIT_RATE_WINDOW",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.JWTAudience != "authenticated" {
		t.Fatalf("JWTAudience = %q, want authenticated", cfg.JWTAudience)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("TokenTTL = %s, want 24h", cfg.TokenTTL)
	}
	if cfg.RateLimit != 100 {
		t.Fatalf("RateLimit = %d, want 100", cfg.RateLimit)
	}
	if len(cfg.AdminEmails) != 0 {
		t.Fatalf("AdminEmails = %v, want empty", cfg.AdminEmails)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LABELKIT_ADDR", ":9999")
	t.Setenv("LABELKIT_JWT_SECRET", "prod-secret")
	t.Setenv("LABELKIT_TOKEN_TTL", "2h")
	t.Setenv("LABELKIT_RATE_LIMIT", "5")
	t.Setenv("LABELKIT_ADMIN_EMAILS", "Boss@Example.com, ops@example.com ,")

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Fatalf("Addr = %q, want :9999", cfg.Addr)
	}
	if cfg.JWTSecret != "prod-secret" {
		t.Fatalf("JWTSecret = %q, want prod-secret", cfg.JWTSecret)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("TokenTTL = %s, want 2h", cfg.TokenTTL)
	}
	if cfg.RateLimit != 5 {
		t.Fatalf("RateLimit = %d, want 5", cfg.RateLimit)
	}
	if len(cfg.AdminEmails) != 2 || !cfg.AdminEmails["boss@example.com"] || !cfg.AdminEmails["ops@example.com"] {
		t.Fatalf("AdminEmails = %v, want lowercase set of two", cfg.AdminEmails)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LABELKIT_TOKEN_TTL", "soon")
	t.Setenv("LABELKIT_RATE_LIMIT", "many")

	cfg := Load()
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("TokenTTL = %s, want 24h fallback", cfg.TokenTTL)
	}
	if cfg.RateLimit != 100 {
		t.Fatalf("RateLimit = %d, want 100 fallback", cfg.RateLimit)
	}
}
