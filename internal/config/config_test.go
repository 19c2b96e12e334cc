package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PARTNER_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,,")

	cfg := Load()

	if cfg.PartnerTimeout != 30*time.Second {
		t.Fatalf("expected 30s fallback, got %s", cfg.PartnerTimeout)
	}
	if cfg.SignatureMaxAge != 5*time.Minute {
		t.Fatalf("expected 5m max age, got %s", cfg.SignatureMaxAge)
	}
	if cfg.SSOTicketTTL != 2*time.Minute {
		t.Fatalf("expected 2m ticket ttl, got %s", cfg.SSOTicketTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{PartnerSecretKey: "secret", PartnerAESKey: strings.Repeat("k", 32)}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg.PartnerAESKey = "short"
	if err := cfg.Validate(); !errors.Is(err, envelope.ErrConfig) {
		t.Fatalf("expected ErrConfig for short key, got %v", err)
	}

	cfg.PartnerAESKey = strings.Repeat("k", 32)
	cfg.PartnerSecretKey = " "
	if err := cfg.Validate(); !errors.Is(err, envelope.ErrConfig) {
		t.Fatalf("expected ErrConfig for missing secret, got %v", err)
	}
}
