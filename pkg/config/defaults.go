package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultLogFile        = "/var/log/emerge.log"
	DefaultLimit          = 10
	DefaultDecay          = 0.9
	DefaultJobs           = 1
	DefaultDateFormat     = "ymdhms"
	DefaultDurationFormat = "hms"
	DefaultColor          = "auto"
	DefaultOutput         = "text"
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvLogFiles   = "MERGELOG_LOG_FILES"
	EnvDateFormat = "MERGELOG_DATE_FORMAT"
	EnvColor      = "MERGELOG_COLOR"
	EnvOutput     = "MERGELOG_OUTPUT"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogFiles:       []string{DefaultLogFile},
		Limit:          DefaultLimit,
		Decay:          DefaultDecay,
		Jobs:           DefaultJobs,
		DateFormat:     DefaultDateFormat,
		DurationFormat: DefaultDurationFormat,
		Color:          DefaultColor,
		Output:         DefaultOutput,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to
// the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvLogFiles); v != "" {
		c.LogFiles = splitList(v)
	}
	if v := os.Getenv(EnvDateFormat); v != "" {
		c.DateFormat = v
	}
	if v := os.Getenv(EnvColor); v != "" {
		c.Color = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
