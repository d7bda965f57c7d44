// Package config reads the application configuration from the
// environment. All values are supplied at process start and never
// renegotiated at runtime.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Recognized ASR engines.
const (
	EngineMimi   = "mimi"
	EngineGoogle = "google"
)

// Config is the full configuration surface of the application.
type Config struct {
	// mimi speech backend credentials.
	MimiApplicationID string
	MimiClientID      string
	MimiClientSecret  string
	// Optional endpoint overrides, mainly for tests.
	MimiAuthURL    string
	MimiServiceURL string

	// Generative AI endpoint.
	GeminiAPIKey   string
	GeminiEndpoint string
	GeminiModel    string

	// ASREngine selects the recognizer implementation: mimi or google.
	ASREngine string

	// Port of the local UI gateway.
	Port string
}

// Load builds the configuration from the environment and fails fast on
// missing required values.
func Load() (*Config, error) {
	cfg := &Config{
		MimiApplicationID: os.Getenv("MIMI_APPLICATION_ID"),
		MimiClientID:      os.Getenv("MIMI_CLIENT_ID"),
		MimiClientSecret:  os.Getenv("MIMI_CLIENT_SECRET"),
		MimiAuthURL:       os.Getenv("MIMI_AUTH_URL"),
		MimiServiceURL:    os.Getenv("MIMI_SERVICE_URL"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiEndpoint:    os.Getenv("GEMINI_ENDPOINT"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ASREngine:         getEnv("ASR_ENGINE", EngineMimi),
		Port:              getEnv("PORT", "8080"),
	}

	var missing []string
	for _, required := range []struct {
		key   string
		value string
	}{
		{"MIMI_APPLICATION_ID", cfg.MimiApplicationID},
		{"MIMI_CLIENT_ID", cfg.MimiClientID},
		{"MIMI_CLIENT_SECRET", cfg.MimiClientSecret},
		{"GEMINI_API_KEY", cfg.GeminiAPIKey},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.ASREngine != EngineMimi && cfg.ASREngine != EngineGoogle {
		return nil, fmt.Errorf("unsupported ASR_ENGINE %q", cfg.ASREngine)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
