package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "chorestar.db" {
		t.Errorf("db path = %q, want %q", cfg.DBPath, "chorestar.db")
	}
	if cfg.RateLimit != 120 {
		t.Errorf("rate limit = %d, want 120", cfg.RateLimit)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.ShutdownTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHORESTAR_PORT", "9090")
	t.Setenv("CHORESTAR_S3_BUCKET", "family-backups")
	t.Setenv("CHORESTAR_TIMEZONE", "America/Denver")
	t.Setenv("CHORESTAR_REMINDER_HOUR", "18")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.S3.Bucket != "family-backups" {
		t.Errorf("bucket = %q, want %q", cfg.S3.Bucket, "family-backups")
	}
	if cfg.ReminderHour != 18 {
		t.Errorf("reminder hour = %d, want 18", cfg.ReminderHour)
	}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "America/Denver" {
		t.Errorf("location = %q, want %q", loc.String(), "America/Denver")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CHORESTAR_BACKUP_HOUR", "24"},
		{"CHORESTAR_REMINDER_HOUR", "-1"},
		{"CHORESTAR_RATE_LIMIT", "0"},
		{"CHORESTAR_TIMEZONE", "Mars/Olympus"},
		{"CHORESTAR_SHUTDOWN_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
