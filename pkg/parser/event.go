package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ccollicutt/mergelog/pkg/atom"
)

// counterRe matches the "(N of M)" progress counter on merge markers.
// Both numbers are positive with no leading zeros, and the closing
// parenthesis is followed by the package spec.
var counterRe = regexp.MustCompile(`^\(([1-9][0-9]*) of ([1-9][0-9]*)\) `)

// ParseEvent extracts the structured payload from a scanned token.
// A nil warning means the event is valid. A malformed payload yields
// a warning and no event; the token is dropped from the stream and
// processing continues.
func ParseEvent(tok Token) (Event, *ParseWarning) {
	warn := func(reason string) (Event, *ParseWarning) {
		return Event{}, &ParseWarning{Source: tok.Source, Line: tok.Line, Reason: reason}
	}

	ev := Event{Time: tok.Time, Kind: tok.Kind, Source: tok.Source, Line: tok.Line}

	switch tok.Kind {
	case KindMergeStart, KindMergeEnd:
		rest := strings.TrimPrefix(tok.Rest, markerMergeStart)
		rest = strings.TrimPrefix(rest, markerMergeEnd)

		// The counter is present on every line Portage writes, but
		// the grammar treats it as optional.
		if strings.HasPrefix(rest, "(") {
			m := counterRe.FindStringSubmatch(rest)
			if m == nil {
				return warn("malformed progress counter")
			}
			n, _ := strconv.Atoi(m[1])
			of, _ := strconv.Atoi(m[2])
			ev.Counter = Counter{N: n, Of: of}
			rest = rest[len(m[0]):]
		}

		// The package spec runs to the first space; the " to <root>"
		// suffix is ignored.
		spec, _, _ := strings.Cut(rest, " ")
		a, err := atom.Parse(spec)
		if err != nil {
			return warn(err.Error())
		}
		ev.Atom = a

	case KindUnmergeStart:
		rest := strings.TrimPrefix(tok.Rest, markerUnmergeStart)
		spec, _, found := strings.Cut(rest, ")")
		if !found {
			return warn("unclosed parenthesis after unmerge marker")
		}
		a, err := atom.Parse(strings.TrimSpace(spec))
		if err != nil {
			return warn(err.Error())
		}
		ev.Atom = a

	case KindUnmergeEnd:
		spec := strings.TrimSpace(strings.TrimPrefix(tok.Rest, markerUnmergeEnd))
		a, err := atom.Parse(spec)
		if err != nil {
			return warn(err.Error())
		}
		ev.Atom = a

	case KindSyncStart:
		// No payload.

	case KindSyncEnd:
		ev.Repo = syncRepo(tok.Rest)

	default:
		return warn("line has no event marker")
	}

	return ev, nil
}

// syncRepo extracts the repository label from a sync completion:
// "=== Sync completed for gentoo" on current Portage,
// "=== Sync completed with rsync://..." on older versions,
// bare "=== Sync completed" on the oldest.
func syncRepo(rest string) string {
	rest = strings.TrimSpace(strings.TrimPrefix(rest, markerSyncEnd))
	if r, ok := strings.CutPrefix(rest, "for "); ok {
		return r
	}
	if r, ok := strings.CutPrefix(rest, "with "); ok {
		return r
	}
	return ""
}
