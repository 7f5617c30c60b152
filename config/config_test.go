package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// cleanupEnv clears every variable Load reads
func cleanupEnv() {
	for _, name := range GetEnvVars() {
		_ = os.Unsetenv(name)
	}
}

func TestLoadValidConfig(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("PORT", "8002")
	_ = os.Setenv("ADDRESS", "127.0.0.1")
	_ = os.Setenv("ENV", "dev")
	_ = os.Setenv("LOG_LEVEL", "info")
	_ = os.Setenv("BACKEND_URL", "https://clinic.internal/api/")
	_ = os.Setenv("SYNC_INTERVAL_MINUTES", "5")
	_ = os.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://rx.clinic.internal")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.BackendURL != "https://clinic.internal/api" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.BackendURL)
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("Expected 5m sync interval, got %v", cfg.SyncInterval)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://rx.clinic.internal" {
		t.Errorf("Unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.PatientCacheTTL != 30*time.Second {
		t.Errorf("Expected 30s cache TTL, got %v", cfg.PatientCacheTTL)
	}
	if cfg.RedisURL != "" {
		t.Errorf("Redis should be disabled by default")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"non numeric port", "PORT", "abc", "PORT must be a valid number"},
		{"port zero", "PORT", "0", "PORT must be between 1 and 65535"},
		{"privileged port", "PORT", "80", "PORT 80 is privileged"},
		{"public address", "ADDRESS", "8.8.8.8", "is a public IP"},
		{"bad address", "ADDRESS", "not-an-ip", "must be a valid IP address"},
		{"unknown env", "ENV", "qa", "ENV must be one of"},
		{"unknown log level", "LOG_LEVEL", "trace", "LOG_LEVEL must be one of"},
		{"body limit", "MAX_REQUEST_BODY", "-1", "MAX_REQUEST_BODY must be positive"},
		{"retention", "LOG_RETENTION_WEEKS", "60", "LOG_RETENTION_WEEKS"},
		{"log size", "MAX_LOG_FILE_SIZE", "10", "MAX_LOG_FILE_SIZE"},
		{"backend scheme", "BACKEND_URL", "ftp://clinic/api", "scheme must be http or https"},
		{"backend host", "BACKEND_URL", "http://", "host cannot be empty"},
		{"timeout", "BACKEND_TIMEOUT_SECONDS", "600", "BACKEND_TIMEOUT_SECONDS"},
		{"sync interval", "SYNC_INTERVAL_MINUTES", "0", "SYNC_INTERVAL_MINUTES"},
		{"cache ttl", "PATIENT_CACHE_TTL_SECONDS", "3600", "PATIENT_CACHE_TTL_SECONDS"},
		{"redis url", "REDIS_URL", "http://cache:6379", "REDIS_URL"},
		{"wildcard origin", "ALLOWED_ORIGINS", "*", "ALLOWED_ORIGINS"},
		{"wildcard among origins", "ALLOWED_ORIGINS", "https://app.example.com, *", "wildcard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupEnv()
			defer cleanupEnv()
			_ = os.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("Expected error containing %q, got %q", tt.expected, err.Error())
			}
		})
	}
}

func TestLoadAcceptsRedisURL(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()
	_ = os.Setenv("REDIS_URL", "redis://127.0.0.1:6379/2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.RedisURL != "redis://127.0.0.1:6379/2" {
		t.Errorf("Unexpected redis url %s", cfg.RedisURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing .env must not fail: %v", err)
	}

	if err := os.WriteFile(".env", []byte("PORT=9123\nBACKEND_TOKEN=secret\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9123" || cfg.BackendToken != "secret" {
		t.Errorf("values from .env not applied: port=%s token=%s", cfg.Port, cfg.BackendToken)
	}
}
