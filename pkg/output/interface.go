package output

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Formatter renders reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Duration selects the duration rendering style.
	Duration DurationStyle

	// Date selects the timestamp rendering style.
	Date DateStyle

	// Location is the time zone for rendered timestamps. Nil means
	// local time.
	Location *time.Location

	// Styles is the color scheme for text output. Nil disables
	// styling.
	Styles *Styles

	// Quiet enables minimal summary-only output.
	Quiet bool
}

// NewFormatter returns the formatter registered under name. The empty
// string selects text.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", name)
	}
}
