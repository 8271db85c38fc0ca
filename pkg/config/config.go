package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/mergelog/pkg/output"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads the per-user configuration file if present and
// falls back to built-in defaults when it does not exist.
func LoadDefault(ctx context.Context) (*Config, error) {
	if path := DefaultPath(); path != "" {
		cfg, err := Load(ctx, path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns the per-user configuration file location, or ""
// when the user config directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mergelog", "config.yaml")
}

// Validate checks a configuration for errors and resolves the render
// styles. Unset values fall back to defaults.
func Validate(cfg *Config) error {
	if len(cfg.LogFiles) == 0 {
		cfg.LogFiles = []string{DefaultLogFile}
	}

	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit: %d must be positive", cfg.Limit)
	}

	if cfg.Decay == 0 {
		cfg.Decay = DefaultDecay
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		return fmt.Errorf("decay: %v out of range (want between 0 and 1 exclusive)", cfg.Decay)
	}

	if cfg.Jobs == 0 {
		cfg.Jobs = DefaultJobs
	}
	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs: %d must be positive", cfg.Jobs)
	}

	var err error
	if cfg.dateStyle, err = output.ParseDateStyle(cfg.DateFormat); err != nil {
		return fmt.Errorf("date_format: %w", err)
	}
	if cfg.durationStyle, err = output.ParseDurationStyle(cfg.DurationFormat); err != nil {
		return fmt.Errorf("duration_format: %w", err)
	}
	if cfg.colorMode, err = output.ParseColorMode(cfg.Color); err != nil {
		return fmt.Errorf("color: %w", err)
	}

	switch cfg.Output {
	case "":
		cfg.Output = DefaultOutput
	case "text", "json":
	default:
		return fmt.Errorf("output: unknown output format %q (want text or json)", cfg.Output)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnAnomalies
	case WebhookTriggerOnAnomalies, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_anomalies, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
