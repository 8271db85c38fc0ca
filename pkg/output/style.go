package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ColorMode controls whether text output is styled.
type ColorMode int

const (
	// ColorAuto styles output only when the writer is a terminal.
	ColorAuto ColorMode = iota

	// ColorAlways styles output unconditionally.
	ColorAlways

	// ColorNever disables styling.
	ColorNever
)

// ParseColorMode parses a color mode name, accepting y and n as
// shorthand. The empty string selects ColorAuto.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always", "y":
		return ColorAlways, nil
	case "never", "n":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color mode %q (want always, never, or auto)", s)
	}
}

// String returns the canonical name of the mode.
func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// Styles holds the render styles for one output stream. When the
// stream does not support color, merges and unmerges fall back to the
// ">>> " and "<<< " prefixes so the action stays visible.
type Styles struct {
	Merge    lipgloss.Style
	Unmerge  lipgloss.Style
	Duration lipgloss.Style
	Count    lipgloss.Style
	Header   lipgloss.Style

	MergePrefix   string
	UnmergePrefix string
}

// NewStyles builds the style set for w under the given color mode.
func NewStyles(w io.Writer, mode ColorMode) *Styles {
	var renderer *lipgloss.Renderer
	switch mode {
	case ColorAlways:
		renderer = lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI))
	case ColorNever:
		renderer = lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
	default:
		renderer = lipgloss.NewRenderer(w)
	}

	s := &Styles{
		Merge:    renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		Unmerge:  renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Duration: renderer.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		Count:    renderer.NewStyle().Foreground(lipgloss.Color("3")).Faint(true),
		Header:   renderer.NewStyle().Bold(true),
	}
	if renderer.ColorProfile() == termenv.Ascii {
		s.MergePrefix = ">>> "
		s.UnmergePrefix = "<<< "
	}
	return s
}
