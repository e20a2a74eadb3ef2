package config

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	_ = godotenv.Load()
}

type HTTPConfig struct {
	ProviderTimeout   time.Duration
	OpenRouterTimeout time.Duration
	ShutdownTimeout   time.Duration
}

var HTTP = loadHTTPConfig()

func loadHTTPConfig() HTTPConfig {
	cfg := HTTPConfig{
		ProviderTimeout:   15 * time.Second,
		OpenRouterTimeout: 15 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}

	if v := os.Getenv("HTTP_PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ProviderTimeout = d
		}
	}

	if v := os.Getenv("HTTP_OPENROUTER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OpenRouterTimeout = d
		}
	}

	if v := os.Getenv("HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}

	return cfg
}

// ProviderClient is used for identity provider calls. Session validation runs
// on every request, so the timeout is deliberately short.
func ProviderClient() *http.Client {
	return &http.Client{
		Timeout: HTTP.ProviderTimeout,
	}
}

func OpenRouterClient() *http.Client {
	return &http.Client{
		Timeout: HTTP.OpenRouterTimeout,
	}
}
