package output

import (
	"fmt"
	"strconv"
	"time"
)

// DateStyle selects how timestamps are rendered.
type DateStyle int

const (
	// DateYMDHMS renders a full date and time, "2018-04-03 12:30:45".
	DateYMDHMS DateStyle = iota

	// DateYMD renders the date only, "2018-04-03".
	DateYMD

	// DateRFC3339 renders RFC 3339, "2018-04-03T12:30:45Z".
	DateRFC3339

	// DateRFC2822 renders RFC 2822, "Tue, 03 Apr 2018 12:30:45 +0000".
	DateRFC2822

	// DateCompact renders digits only, "20180403123045".
	DateCompact

	// DateUnix renders seconds since the epoch.
	DateUnix
)

const rfc2822Layout = "Mon, 02 Jan 2006 15:04:05 -0700"

// ParseDateStyle parses a date style name, accepting the short aliases
// d, dt, 3339, and 2822. The empty string selects DateYMDHMS.
func ParseDateStyle(s string) (DateStyle, error) {
	switch s {
	case "", "ymdhms", "dt":
		return DateYMDHMS, nil
	case "ymd", "d":
		return DateYMD, nil
	case "rfc3339", "3339":
		return DateRFC3339, nil
	case "rfc2822", "2822":
		return DateRFC2822, nil
	case "compact":
		return DateCompact, nil
	case "unix":
		return DateUnix, nil
	default:
		return DateYMDHMS, fmt.Errorf("unknown date format %q (want ymd, ymdhms, rfc3339, rfc2822, compact, or unix)", s)
	}
}

// String returns the canonical name of the style.
func (s DateStyle) String() string {
	switch s {
	case DateYMD:
		return "ymd"
	case DateRFC3339:
		return "rfc3339"
	case DateRFC2822:
		return "rfc2822"
	case DateCompact:
		return "compact"
	case DateUnix:
		return "unix"
	default:
		return "ymdhms"
	}
}

// FormatTime renders t in the given style and location. A nil location
// means local time. DateUnix ignores the location.
func FormatTime(t time.Time, style DateStyle, loc *time.Location) string {
	if style == DateUnix {
		return strconv.FormatInt(t.Unix(), 10)
	}
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	switch style {
	case DateYMD:
		return t.Format("2006-01-02")
	case DateRFC3339:
		return t.Format(time.RFC3339)
	case DateRFC2822:
		return t.Format(rfc2822Layout)
	case DateCompact:
		return t.Format("20060102150405")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}
