package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
	if cfg.StorageDriver != StorageDriverFilesystem {
		t.Fatalf("StorageDriver = %q, want %q", cfg.StorageDriver, StorageDriverFilesystem)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigJobDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JOB_TIMEOUT_MINUTES", "")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JobTimeout != time.Hour {
		t.Fatalf("JobTimeout = %s, want 1h", cfg.JobTimeout)
	}
	if cfg.JobPollInterval != 2*time.Second {
		t.Fatalf("JobPollInterval = %s, want 2s", cfg.JobPollInterval)
	}
}

func TestLoadConfigGCSRequiresBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_DRIVER", "gcs")
	t.Setenv("GCS_BUCKET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when GCS_BUCKET is missing")
	}

	t.Setenv("GCS_BUCKET", "genads-media")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GCSBucket != "genads-media" {
		t.Fatalf("GCSBucket = %q", cfg.GCSBucket)
	}
}

func TestLoadConfigRejectsUnknownPlanner(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PLANNER_PROVIDER", "llama")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unsupported planner provider")
	}
}

func TestLoadConfigParsesOriginList(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestRequireJWTSecret(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	cfg.JWTSecret = "s3cret"
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
