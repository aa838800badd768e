package config

import (
	"strings"
	"testing"
)

const testSecret = "Xk3!mQ9pLz7wRt2vBn8cYf4hJd6gSa1e"

func TestLoad(t *testing.T) {
	t.Setenv("MINICMS_SESSION_SECRET", testSecret)
	t.Setenv("MINICMS_DB_PATH", "/tmp/test.db")
	t.Setenv("MINICMS_SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.EventRetentionDays != 90 {
		t.Errorf("EventRetentionDays = %d, want 90", cfg.EventRetentionDays)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("MINICMS_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail without session secret")
	}
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("MINICMS_SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should reject short secret")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("error should mention minimum length, got: %v", err)
	}
}

func TestLoad_WeakSecret(t *testing.T) {
	t.Setenv("MINICMS_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject known weak secret")
	}
}

func TestConfig_ServerAddr(t *testing.T) {
	cfg := Config{ServerHost: "0.0.0.0", ServerPort: 8081}
	if got := cfg.ServerAddr(); got != "0.0.0.0:8081" {
		t.Errorf("ServerAddr() = %q, want %q", got, "0.0.0.0:8081")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	if !(Config{Env: "development"}).IsDevelopment() {
		t.Error("development env should be development")
	}
	if (Config{Env: "production"}).IsDevelopment() {
		t.Error("production env should not be development")
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaa", false},
		{"abcABC", false},
		{"abcABC123", true},
		{"abc123!@#", true},
		{testSecret, true},
	}

	for _, tt := range tests {
		t.Run(tt.secret, func(t *testing.T) {
			if got := hasMinimumEntropy(tt.secret); got != tt.want {
				t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
			}
		})
	}
}
