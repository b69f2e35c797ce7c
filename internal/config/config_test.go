package config

import (
	"testing"
	"time"
)

var allEnvVars = []string{
	"SCRAV_DATABASE_URL", "SCRAV_HTTP_ADDR", "SCRAV_NATS_URL", "SCRAV_AUTH_TOKEN",
	"SCRAV_S3_BUCKET", "SCRAV_S3_ENDPOINT", "SCRAV_S3_REGION",
	"SCRAV_PORTAL_URL", "SCRAV_PORTAL_USERNAME", "SCRAV_PORTAL_PASSWORD",
	"SCRAV_DEVTOOLS_URL", "SCRAV_HEADLESS", "SCRAV_STEP_TIMEOUT",
	"SCRAV_SESSION_TIMEOUT", "SCRAV_SIGNED_URL_TTL", "SCRAV_URL_CACHE_TTL",
	"SCRAV_MAX_SESSIONS",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SCRAV_DATABASE_URL", "postgres://localhost/scra")
	t.Setenv("SCRAV_S3_BUCKET", "scra-artifacts")
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{"SCRAV_S3_BUCKET": "b"},
			wantErr: true,
		},
		{
			name:    "MissingBucket",
			env:     map[string]string{"SCRAV_DATABASE_URL": "postgres://localhost/scra"},
			wantErr: true,
		},
		{
			name: "Minimal",
			env: map[string]string{
				"SCRAV_DATABASE_URL": "postgres://localhost/scra",
				"SCRAV_S3_BUCKET":    "scra-artifacts",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.HTTPAddr != ":8080" {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
			}
			if cfg.PortalURL != DefaultPortalURL {
				t.Errorf("PortalURL = %q, want default", cfg.PortalURL)
			}
			if !cfg.Headless {
				t.Error("Headless should default to true")
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("S3Region = %q, want %q", cfg.S3Region, "us-east-1")
	}
	if cfg.StepTimeout != 30*time.Second {
		t.Errorf("StepTimeout = %v, want 30s", cfg.StepTimeout)
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Errorf("SessionTimeout = %v, want 5m", cfg.SessionTimeout)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Errorf("SignedURLTTL = %v, want 1h", cfg.SignedURLTTL)
	}
	if cfg.URLCacheTTL != 45*time.Minute {
		t.Errorf("URLCacheTTL = %v, want 45m", cfg.URLCacheTTL)
	}
	if cfg.MaxSessions != 4 {
		t.Errorf("MaxSessions = %d, want 4", cfg.MaxSessions)
	}
}

func TestLoadNegativeMaxSessions(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("SCRAV_MAX_SESSIONS", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative SCRAV_MAX_SESSIONS")
	}
}

func TestLoadHeadlessDisabled(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("SCRAV_HEADLESS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Headless {
		t.Error("Headless = true, want false")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("SCRAV_STEP_TIMEOUT", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SCRAV_STEP_TIMEOUT")
	}
}

func TestLoadCacheTTLMustBeShorterThanSignedTTL(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("SCRAV_SIGNED_URL_TTL", "30m")
	t.Setenv("SCRAV_URL_CACHE_TTL", "30m")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when cache TTL >= signed URL TTL")
	}
}
