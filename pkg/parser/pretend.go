package parser

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/ccollicutt/mergelog/pkg/atom"
)

// pretendRe matches one planned package in "emerge --pretend" output:
// a bracketed status tag followed by the package spec.
var pretendRe = regexp.MustCompile(`^\[([^]]+)\] +([^ ]+)`)

// ReadPretend parses "emerge --pretend" output into the list of
// planned package atoms, in order. Lines that do not describe an
// ebuild or binary package (headers, blocker notices, USE chatter)
// are ignored.
func ReadPretend(ctx context.Context, lines LineSource) ([]atom.Atom, error) {
	var atoms []atom.Atom

	for {
		line, err := lines.Next(ctx)
		if err == io.EOF {
			return atoms, nil
		}
		if err != nil {
			return nil, err
		}

		m := pretendRe.FindStringSubmatch(line.Text)
		if m == nil {
			continue
		}
		tag, spec := m[1], m[2]
		if !strings.HasPrefix(tag, "ebuild") && !strings.HasPrefix(tag, "binary") {
			// "[blocks B ...]" and friends name packages but are not
			// planned merges.
			continue
		}

		// Strip the "::repo" suffix emerge appends to the spec.
		spec, _, _ = strings.Cut(spec, "::")
		a, err := atom.Parse(spec)
		if err != nil {
			continue
		}
		atoms = append(atoms, a)
	}
}
