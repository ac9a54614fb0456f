package codegen

import (
	"fmt"

	"cnext/internal/diag"
	"cnext/internal/source"
)

// GenError aborts generation of the current file. It carries everything
// needed to surface a structured diagnostic: a stable code, the position,
// and an optional remediation hint.
type GenError struct {
	Code diag.Code
	Pos  source.Pos
	Msg  string
	Hint string
}

func (e *GenError) Error() string { return e.Msg }

// errf builds a GenError.
func errf(code diag.Code, pos source.Pos, format string, args ...any) *GenError {
	return &GenError{Code: code, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// withHint attaches a remediation hint.
func (e *GenError) withHint(hint string) *GenError {
	e.Hint = hint
	return e
}

// Diagnostic converts the error to a reportable diagnostic.
func (e *GenError) Diagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     e.Code,
		Message:  e.Msg,
		Primary:  e.Pos,
		Hint:     e.Hint,
	}
}
