package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "MAX_FREQUENCIES", "MAX_BODY_BYTES", "SENSITIVITY_TOLERANCE", "RESP_DIR", "API_BEARER_TOKEN", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.MaxFrequencies != 10000 || cfg.Tolerance != 0.05 || cfg.RespDir != "" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_FREQUENCIES", "500")
	t.Setenv("SENSITIVITY_TOLERANCE", "0.02")
	t.Setenv("RESP_DIR", dir)
	t.Setenv("API_BEARER_TOKEN", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/resp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Port:           9090,
		RespDir:        dir,
		BearerToken:    "s3cret",
		MaxFrequencies: 500,
		MaxBodyBytes:   16 << 20,
		Tolerance:      0.02,
		DatabaseURL:    "postgres://localhost/resp",
	}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "http"},
		{"PORT", "-1"},
		{"MAX_FREQUENCIES", "0"},
		{"MAX_BODY_BYTES", "lots"},
		{"SENSITIVITY_TOLERANCE", "-0.1"},
		{"RESP_DIR", "/nonexistent/resp"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), "invalid "+tt.key) {
				t.Errorf("err = %v", err)
			}
		})
	}
}
