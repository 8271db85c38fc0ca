package parser

import (
	"strconv"
	"strings"
	"time"
)

// Log line shape: an integer epoch timestamp, an optional fractional
// suffix, a colon, then the marker text. Portage writes two spaces
// after the colon but older tools wrote one, so any run of spaces is
// accepted.
//
// Marker matching is anchored at the start of the remainder. Substring
// search would misfire on marker text quoted inside unrelated lines.
const (
	markerMergeStart   = ">>> emerge "
	markerMergeEnd     = "::: completed emerge "
	markerUnmergeStart = "=== Unmerging... ("
	markerUnmergeEnd   = ">>> unmerge success: "
	markerSyncStart    = "=== sync"
	markerSyncEnd      = "=== Sync completed"
)

// ScanLine classifies a raw log line into a Token. ok is false when
// the line does not start with an epoch timestamp and delimiter; such
// lines are skipped, not errors. Timestamped lines with unrecognized
// marker text yield a Token of KindOther.
func ScanLine(line LogLine) (Token, bool) {
	text := strings.TrimRight(line.Text, " \t\r")

	ts, rest, ok := splitTimestamp(text)
	if !ok {
		return Token{}, false
	}

	return Token{
		Time:   ts,
		Kind:   classify(rest),
		Rest:   rest,
		Source: line.Source,
		Line:   line.Line,
	}, true
}

// splitTimestamp parses the leading "<epoch>[.<frac>]:" and returns
// the timestamp and the remainder with leading spaces stripped.
func splitTimestamp(text string) (time.Time, string, bool) {
	i := 0
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if i == 0 {
		return time.Time{}, "", false
	}
	sec, err := strconv.ParseInt(text[:i], 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}

	var nsec int64
	if i < len(text) && text[i] == '.' {
		j := i + 1
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		if j == i+1 {
			return time.Time{}, "", false
		}
		frac := text[i+1 : j]
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, "", false
		}
		for k := len(frac); k < 9; k++ {
			n *= 10
		}
		nsec = n
		i = j
	}

	if i >= len(text) || text[i] != ':' {
		return time.Time{}, "", false
	}
	i++
	for i < len(text) && text[i] == ' ' {
		i++
	}

	return time.Unix(sec, nsec), text[i:], true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// classify maps anchored marker text to a Kind.
func classify(rest string) Kind {
	switch {
	case strings.HasPrefix(rest, markerMergeStart):
		return KindMergeStart
	case strings.HasPrefix(rest, markerMergeEnd):
		return KindMergeEnd
	case strings.HasPrefix(rest, markerUnmergeStart):
		return KindUnmergeStart
	case strings.HasPrefix(rest, markerUnmergeEnd):
		return KindUnmergeEnd
	case strings.HasPrefix(rest, markerSyncEnd):
		return KindSyncEnd
	case rest == markerSyncStart || strings.HasPrefix(rest, markerSyncStart+" "):
		// "=== sync" must not swallow "=== Sync completed"; the case
		// differs, but require a word boundary anyway.
		return KindSyncStart
	default:
		return KindOther
	}
}
