// Package config provides configuration loading and validation for
// mergelog.
package config

import (
	"time"

	"github.com/ccollicutt/mergelog/pkg/output"
)

// Config is the root configuration structure loaded from YAML. Zero
// values fall back to defaults during validation.
type Config struct {
	// LogFiles are the emerge logs to read. Entries may be globs.
	LogFiles []string `yaml:"log_files,omitempty"`

	// Limit caps how many recent samples per package inform the
	// recent mean and predictions.
	Limit int `yaml:"limit,omitempty"`

	// Decay is the weight kept by the accumulated average when a
	// new sample is folded in, between 0 and 1 exclusive.
	Decay float64 `yaml:"decay,omitempty"`

	// Jobs is the number of parallel parser workers.
	Jobs int `yaml:"jobs,omitempty"`

	// DateFormat selects how timestamps are rendered (ymd, ymdhms,
	// rfc3339, rfc2822, compact, unix).
	DateFormat string `yaml:"date_format,omitempty"`

	// DurationFormat selects how durations are rendered (hms, s).
	DurationFormat string `yaml:"duration_format,omitempty"`

	// Color controls styling of text output (auto, always, never).
	Color string `yaml:"color,omitempty"`

	// Output selects the report format (text, json).
	Output string `yaml:"output,omitempty"`

	// UTC renders timestamps in UTC instead of local time.
	UTC bool `yaml:"utc,omitempty"`

	// Webhooks are endpoints that receive the report after a run.
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// Resolved render settings (populated during validation).
	dateStyle     output.DateStyle
	durationStyle output.DurationStyle
	colorMode     output.ColorMode
}

// DateStyle returns the resolved date rendering style.
func (c *Config) DateStyle() output.DateStyle {
	return c.dateStyle
}

// DurationStyle returns the resolved duration rendering style.
func (c *Config) DurationStyle() output.DurationStyle {
	return c.durationStyle
}

// ColorMode returns the resolved color mode.
func (c *Config) ColorMode() output.ColorMode {
	return c.colorMode
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnAnomalies fires only when the log shows
	// inconsistencies (default).
	WebhookTriggerOnAnomalies WebhookTrigger = "on_anomalies"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication. ${VAR}
	// and $VAR forms are expanded from the environment.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_anomalies" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
