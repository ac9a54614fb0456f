package diag

import (
	"fmt"

	"cnext/internal/source"
)

// Reporter is the minimal contract phases use to surface diagnostics.
// Implementations: BagReporter (collects into a Bag), NopReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes every diagnostic into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards all diagnostics.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// Errorf reports a SevError diagnostic built from a format string.
func Errorf(r Reporter, code Code, pos source.Pos, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{
		Severity: SevError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Primary:  pos,
	})
}

// Warnf reports a SevWarning diagnostic built from a format string.
func Warnf(r Reporter, code Code, pos source.Pos, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{
		Severity: SevWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Primary:  pos,
	})
}
