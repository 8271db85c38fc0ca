package output

import (
	"fmt"
	"strconv"
	"time"
)

// DurationStyle selects how durations are rendered.
type DurationStyle int

const (
	// DurationHMS renders colon-separated hours, minutes, and seconds.
	DurationHMS DurationStyle = iota

	// DurationSecs renders raw seconds.
	DurationSecs
)

// ParseDurationStyle parses a duration style name. The empty string
// selects DurationHMS.
func ParseDurationStyle(s string) (DurationStyle, error) {
	switch s {
	case "", "hms":
		return DurationHMS, nil
	case "s":
		return DurationSecs, nil
	default:
		return DurationHMS, fmt.Errorf("unknown duration format %q (want hms or s)", s)
	}
}

// String returns the canonical name of the style.
func (s DurationStyle) String() string {
	if s == DurationSecs {
		return "s"
	}
	return "hms"
}

// FormatDuration renders d in the given style. Negative durations have
// no meaning in a merge log and render as "?". Sub-second precision is
// truncated.
func FormatDuration(d time.Duration, style DurationStyle) string {
	sec := int64(d / time.Second)
	if sec < 0 {
		return "?"
	}
	if style == DurationSecs {
		return strconv.FormatInt(sec, 10)
	}
	h := sec / 3600
	m := sec % 3600 / 60
	s := sec % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	case m > 0:
		return fmt.Sprintf("%d:%02d", m, s)
	default:
		return strconv.FormatInt(s, 10)
	}
}
