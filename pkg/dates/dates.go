// Package dates parses the date spellings accepted on the command
// line: epoch seconds, calendar dates, and relative spans.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var spanTokenRe = regexp.MustCompile(`[0-9]+|[a-z]+`)

// Parse turns a command-line date into a time. Accepted forms:
//
//	1522713600                          epoch seconds
//	2018-04-03                          midnight in loc
//	2018-04-03 01:01[:01]               space or "T" separator
//	3 days                              relative to now
//	1 hour, 3 days 45sec                spans accumulate
//	2 weeks ago                         trailing "ago" tolerated
//	now
//
// Calendar dates are interpreted in loc. Relative spans subtract from
// now; years and months move by calendar, the rest by fixed length.
func Parse(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if s == "now" {
		return now, nil
	}

	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	if t, err := parseCalendar(s, loc); err == nil {
		return t, nil
	}
	if t, err := parseSpan(s, now); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cannot parse date %q (want epoch seconds, 2018-04-03[ 12:30[:45]], or a span like \"3 days\")", s)
}

var calendarLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseCalendar(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range calendarLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no calendar layout matches %q", s)
}

// parseSpan reads "<n> <unit>" pairs and subtracts each from now.
func parseSpan(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(s)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r == ' ' || r == ',':
		default:
			return time.Time{}, fmt.Errorf("bad character %q in time span", r)
		}
	}

	tokens := spanTokenRe.FindAllString(s, -1)
	t := now
	spans := 0

	for i := 0; i < len(tokens); i += 2 {
		if tokens[i] == "ago" && i == len(tokens)-1 && spans > 0 {
			break
		}
		n, err := strconv.Atoi(tokens[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("expected a count, got %q", tokens[i])
		}

		var unit string
		if i+1 < len(tokens) {
			unit = tokens[i+1]
		}
		switch unit {
		case "y", "year", "years":
			t = t.AddDate(-n, 0, 0)
		case "m", "month", "months":
			t = t.AddDate(0, -n, 0)
		case "w", "week", "weeks":
			t = t.Add(-time.Duration(n) * 7 * 24 * time.Hour)
		case "d", "day", "days":
			t = t.Add(-time.Duration(n) * 24 * time.Hour)
		case "h", "hour", "hours":
			t = t.Add(-time.Duration(n) * time.Hour)
		case "min", "mins", "minute", "minutes":
			t = t.Add(-time.Duration(n) * time.Minute)
		case "s", "sec", "secs", "second", "seconds":
			t = t.Add(-time.Duration(n) * time.Second)
		default:
			return time.Time{}, fmt.Errorf("unknown time span %q", unit)
		}
		spans++
	}

	if spans == 0 {
		return time.Time{}, fmt.Errorf("no time span in %q", s)
	}
	return t, nil
}
