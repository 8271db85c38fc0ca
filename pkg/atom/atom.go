// Package atom provides parsing and matching of Portage package atoms.
package atom

import (
	"fmt"
	"regexp"
	"strings"
)

// Atom identifies a single package build: category, name, and version.
// Equality is structural; two Atoms are the same package build exactly
// when all three fields match.
type Atom struct {
	// Category is the Portage category, e.g. "dev-libs".
	Category string `json:"category"`

	// Name is the package name, e.g. "libffi".
	Name string `json:"name"`

	// Version is the version with any revision suffix, e.g. "3.2.1-r1".
	Version string `json:"version"`
}

// Package returns "category/name", the identity used for statistics.
// Build history is keyed by package, not by versioned atom, so that
// past merges of older versions inform predictions for newer ones.
func (a Atom) Package() string {
	return a.Category + "/" + a.Name
}

// String returns the full "category/name-version" spec.
func (a Atom) String() string {
	if a.Version == "" {
		return a.Package()
	}
	return a.Package() + "-" + a.Version
}

// IsZero reports whether the atom is empty (e.g. a sync event).
func (a Atom) IsZero() bool {
	return a.Category == "" && a.Name == "" && a.Version == ""
}

// Parse splits a package spec like "dev-libs/libffi-3.2.1" into its
// category, name, and version parts.
//
// The name/version boundary is the first "-" followed by a digit whose
// remainder consists only of version characters [0-9a-z._-]. This is
// the same boundary rule the classic emerge-log tools use; it handles
// names containing hyphens and digits ("libsdl2", "emul-linux-x86-baselibs",
// "libstdc++-v3") without a full version grammar.
func Parse(spec string) (Atom, error) {
	category, rest, ok := strings.Cut(spec, "/")
	if !ok {
		return Atom{}, fmt.Errorf("package spec %q has no category", spec)
	}
	if category == "" {
		return Atom{}, fmt.Errorf("package spec %q has an empty category", spec)
	}

	name, version, err := splitVersion(rest)
	if err != nil {
		return Atom{}, fmt.Errorf("package spec %q: %w", spec, err)
	}

	return Atom{Category: category, Name: name, Version: version}, nil
}

// splitVersion finds the name/version boundary in "name-version" text.
func splitVersion(s string) (name, version string, err error) {
	for i := 1; i < len(s)-1; i++ {
		if s[i] != '-' || !isDigit(s[i+1]) {
			continue
		}
		if isVersionText(s[i+1:]) {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("no version in %q", s)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// isVersionText reports whether s consists only of the characters that
// may appear in a version: digits, lowercase letters, '.', '_', '-'.
func isVersionText(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'z':
		case b == '.' || b == '_' || b == '-':
		default:
			return false
		}
	}
	return true
}

// Filter selects packages by name. The zero value matches everything.
//
// Two modes: a case-insensitive regular expression over
// "category/name", or an exact string match against the whole name
// (or whole "category/name" when the pattern contains a '/').
type Filter struct {
	re    *regexp.Regexp
	exact string
	qual  bool // exact pattern contains a '/'
}

// NewFilter compiles a regular expression filter over category/name.
// The match is case-insensitive and unanchored.
func NewFilter(pattern string) (*Filter, error) {
	if pattern == "" {
		return &Filter{}, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid package pattern %q: %w", pattern, err)
	}
	return &Filter{re: re}, nil
}

// NewExactFilter builds a filter that matches the whole package name,
// or the whole "category/name" when the pattern contains a '/'.
func NewExactFilter(pattern string) *Filter {
	return &Filter{exact: pattern, qual: strings.Contains(pattern, "/")}
}

// Match reports whether the atom passes the filter.
func (f *Filter) Match(a Atom) bool {
	if f == nil {
		return true
	}
	if f.re != nil {
		return f.re.MatchString(a.Package())
	}
	if f.exact != "" {
		if f.qual {
			return a.Package() == f.exact
		}
		return a.Name == f.exact
	}
	return true
}
