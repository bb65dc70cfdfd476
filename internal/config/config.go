package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the response service.
type Config struct {
	Port int
	// RespDir holds RESP files served by GET requests. Empty disables them.
	RespDir        string
	BearerToken    string
	MaxFrequencies int
	MaxBodyBytes   int64
	Tolerance      float64
	// DatabaseURL enables PostgreSQL export of evaluated responses.
	DatabaseURL string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:           8080,
		MaxFrequencies: 10000,
		MaxBodyBytes:   16 << 20,
		Tolerance:      0.05,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	}

	if n := os.Getenv("MAX_FREQUENCIES"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.MaxFrequencies = v
		} else {
			return cfg, fmt.Errorf("invalid MAX_FREQUENCIES: %s", n)
		}
	}

	if n := os.Getenv("MAX_BODY_BYTES"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil && v > 0 {
			cfg.MaxBodyBytes = v
		} else {
			return cfg, fmt.Errorf("invalid MAX_BODY_BYTES: %s", n)
		}
	}

	if tol := os.Getenv("SENSITIVITY_TOLERANCE"); tol != "" {
		if v, err := strconv.ParseFloat(tol, 64); err == nil && v > 0 {
			cfg.Tolerance = v
		} else {
			return cfg, fmt.Errorf("invalid SENSITIVITY_TOLERANCE: %s", tol)
		}
	}

	if dir := os.Getenv("RESP_DIR"); dir != "" {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			return cfg, fmt.Errorf("invalid RESP_DIR: %s", dir)
		}
		cfg.RespDir = dir
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
