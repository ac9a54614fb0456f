package diagfmt

import (
	"os"

	"golang.org/x/term"
)

// ColorMode selects when severity coloring is applied.
type ColorMode uint8

const (
	// ColorAuto colors only when the writer is a terminal.
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

// ParseColorMode maps the --color flag value to a mode. Unknown values
// fall back to auto.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "on", "always":
		return ColorOn
	case "off", "never":
		return ColorOff
	default:
		return ColorAuto
	}
}

// Enabled resolves the mode against the actual output file.
func (m ColorMode) Enabled(f *os.File) bool {
	switch m {
	case ColorOn:
		return true
	case ColorOff:
		return false
	default:
		return f != nil && term.IsTerminal(int(f.Fd()))
	}
}

// PrettyOpts configures human-readable diagnostic output.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	ShowHints bool
}

// DefaultPrettyOpts shows everything, without color.
func DefaultPrettyOpts() PrettyOpts {
	return PrettyOpts{ShowNotes: true, ShowHints: true}
}
