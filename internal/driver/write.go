package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"cnext/internal/helpers"
)

// writeOutputs materializes a successful run under outDir: one .c, .h and
// .hpp per unit, plus the shared helper header when anything demanded it.
// Callers only reach this when no file carries an error, so a partially
// written tree means an I/O failure, not a compile failure.
func writeOutputs(outDir string, res *Result) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	var written []string
	put := func(name, text string) error {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if res.Runtime != "" {
		if err := put(helpers.RuntimeHeader, res.Runtime); err != nil {
			return written, err
		}
	}
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.Output == nil {
			continue
		}
		if err := put(fr.Unit+".c", fr.Output.Impl); err != nil {
			return written, err
		}
		if err := put(fr.Unit+".h", fr.HeaderC); err != nil {
			return written, err
		}
		if err := put(fr.Unit+".hpp", fr.HeaderCPP); err != nil {
			return written, err
		}
	}
	return written, nil
}
