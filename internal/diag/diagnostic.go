package diag

import "cnext/internal/source"

// Note attaches secondary context to a diagnostic, e.g. "first declared here".
type Note struct {
	Pos source.Pos
	Msg string
}

// Diagnostic is one reported problem with a stable code and a position.
// Hint, when non-empty, carries a remediation suggestion.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Pos
	Notes    []Note
	Hint     string
}

// WithNote returns a copy of the diagnostic with an extra note appended.
func (d Diagnostic) WithNote(pos source.Pos, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: pos, Msg: msg})
	return d
}

// Record is the flat, structured form surfaced to external consumers.
type Record struct {
	Code    string `json:"code"`
	File    string `json:"file"`
	Line    uint32 `json:"line"`
	Column  uint32 `json:"column"`
	Message string `json:"message"`
}

// ToRecord flattens the diagnostic using the file set for path resolution.
func (d Diagnostic) ToRecord(fs *source.FileSet) Record {
	return Record{
		Code:    d.Code.String(),
		File:    fs.Path(d.Primary.File),
		Line:    d.Primary.Line,
		Column:  d.Primary.Col,
		Message: d.Message,
	}
}
