// Package config loads server configuration from the environment, with a
// local .env file as a development convenience.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Addr          string
	PublicBaseURL string

	// Identity service. Empty endpoint selects the in-process backend.
	IdentityEndpoint  string
	IdentityProjectID string
	IdentityAPIKey    string

	// Profile store. "postgres", "remote" or "memory".
	ProfileBackend string
	DatabaseURL    string

	LoginAttempts int
	LoginWindow   time.Duration

	SessionTTL time.Duration

	CORSOrigins  []string
	MaxBodyBytes int64

	RatePerSec float64
	RateBurst  int
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:              getEnv("CVOWF_ADDR", ":8080"),
		PublicBaseURL:     getEnv("CVOWF_PUBLIC_BASE_URL", "https://cvowf.org"),
		IdentityEndpoint:  getEnv("CVOWF_IDENTITY_ENDPOINT", ""),
		IdentityProjectID: getEnv("CVOWF_IDENTITY_PROJECT_ID", "cvowf"),
		IdentityAPIKey:    getEnv("CVOWF_IDENTITY_API_KEY", ""),
		ProfileBackend:    getEnv("CVOWF_PROFILE_BACKEND", "memory"),
		DatabaseURL:       getEnv("CVOWF_DATABASE_URL", ""),
		LoginAttempts:     getEnvInt("CVOWF_LOGIN_ATTEMPTS", 5),
		LoginWindow:       getEnvDuration("CVOWF_LOGIN_WINDOW", 15*time.Minute),
		SessionTTL:        getEnvDuration("CVOWF_SESSION_TTL", 24*time.Hour),
		CORSOrigins:       getEnvList("CVOWF_CORS_ORIGINS", nil),
		MaxBodyBytes:      int64(getEnvInt("CVOWF_MAX_BODY_BYTES", 1<<20)),
		RatePerSec:        getEnvFloat("CVOWF_RATE_PER_SEC", 10),
		RateBurst:         getEnvInt("CVOWF_RATE_BURST", 20),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
