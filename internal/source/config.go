package source

import (
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when neither config nor environment name a
	// backend.
	DefaultBaseURL = "http://localhost:8000"

	// EnvBaseURL overrides the configured backend base URL.
	EnvBaseURL = "AQUABOARD_API_URL"
)

// Config holds configuration for the backend API client.
type Config struct {
	// BaseURL is the HTTP URL of the reporting backend.
	// Defaults to http://localhost:8000.
	BaseURL string `yaml:"base_url"`

	// Timeout for each backend request.
	// Defaults to 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// ApplyEnv lets the environment override the configured base URL and
// fills in the default when neither is set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
}
