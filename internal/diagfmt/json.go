package diagfmt

import (
	"encoding/json"
	"io"

	"cnext/internal/diag"
	"cnext/internal/source"
)

// Output is the root of the machine-readable diagnostic dump.
type Output struct {
	Diagnostics []Record `json:"diagnostics"`
	Count       int      `json:"count"`
}

// Record extends the flat diagnostic record with severity and hint, which
// external consumers filter on.
type Record struct {
	Severity string `json:"severity"`
	diag.Record
	Hint string `json:"hint,omitempty"`
}

// JSON writes every diagnostic of the bag as one indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet) error {
	out := Output{Diagnostics: make([]Record, 0, bag.Len())}
	for _, d := range bag.Items() {
		out.Diagnostics = append(out.Diagnostics, Record{
			Severity: d.Severity.String(),
			Record:   d.ToRecord(fs),
			Hint:     d.Hint,
		})
	}
	out.Count = len(out.Diagnostics)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
