// Package diagfmt renders collected diagnostics for humans and for tools.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"cnext/internal/diag"
	"cnext/internal/source"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	codeColor  = color.New(color.Faint)
	hintColor  = color.New(color.FgGreen)
)

// Pretty writes every diagnostic of the bag in the conventional
// compiler format:
//
//	path:line:col: error DeclDuplicateSymbol: message
//	  note: first declared here
//	  hint: rename one of them
//
// The bag should be sorted first; Pretty preserves its order.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeOne(w, d, fs, opts)
	}
}

func writeOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	loc := location(d.Primary, fs)
	if loc != "" {
		fmt.Fprintf(w, "%s: ", loc)
	}
	fmt.Fprintf(w, "%s %s: %s\n",
		severityLabel(d.Severity, opts.Color),
		paint(codeColor, d.Code.String(), opts.Color),
		d.Message)
	if opts.ShowNotes {
		for _, n := range d.Notes {
			if nl := location(n.Pos, fs); nl != "" {
				fmt.Fprintf(w, "  note: %s (%s)\n", n.Msg, nl)
			} else {
				fmt.Fprintf(w, "  note: %s\n", n.Msg)
			}
		}
	}
	if opts.ShowHints && d.Hint != "" {
		fmt.Fprintf(w, "  %s: %s\n", paint(hintColor, "hint", opts.Color), d.Hint)
	}
}

func severityLabel(s diag.Severity, colored bool) string {
	switch s {
	case diag.SevError:
		return paint(errorColor, "error", colored)
	case diag.SevWarning:
		return paint(warnColor, "warning", colored)
	default:
		return paint(infoColor, "info", colored)
	}
}

func paint(c *color.Color, s string, colored bool) string {
	if !colored {
		return s
	}
	return c.Sprint(s)
}

func location(p source.Pos, fs *source.FileSet) string {
	if !p.IsValid() || fs == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", fs.Path(p.File), p.Line, p.Col)
}
