package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
)

// FileSet registers the paths of all compilation units in a build and hands
// out stable FileIDs for them. The backend never re-reads file contents; the
// front end already resolved every position to line/column, so the set only
// has to map IDs back to paths for diagnostics and output naming.
type FileSet struct {
	paths []string          // paths[0] reserved for NoFileID
	index map[string]FileID // normalized path -> id
}

// NewFileSet creates an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{
		paths: []string{""},
		index: make(map[string]FileID),
	}
}

// Add registers a path and returns its ID. Adding the same path twice
// returns the original ID.
func (fs *FileSet) Add(path string) FileID {
	normalized := normalizePath(path)
	if id, ok := fs.index[normalized]; ok {
		return id
	}
	value, err := safecast.Conv[uint32](len(fs.paths))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(value)
	fs.paths = append(fs.paths, normalized)
	fs.index[normalized] = id
	return id
}

// Lookup returns the ID previously assigned to path, if any.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	id, ok := fs.index[normalizePath(path)]
	return id, ok
}

// Path returns the registered path for the ID, or "" for an invalid ID.
func (fs *FileSet) Path(id FileID) string {
	if !id.IsValid() || int(id) >= len(fs.paths) {
		return ""
	}
	return fs.paths[id]
}

// Len reports the number of registered files excluding the sentinel.
func (fs *FileSet) Len() int { return len(fs.paths) - 1 }

// UnitName derives the compilation-unit name for a path: the base name
// without extension, e.g. "src/blink.cnx" -> "blink".
func UnitName(path string) string {
	base := filepath.Base(normalizePath(path))
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

func normalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
