// Package driver runs the backend pipeline: load the front end's syntax
// tree documents, declare every file into the registry, generate each file
// in parallel, synthesize the demanded helpers, and render the headers.
package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"cnext/internal/ast"
	"cnext/internal/source"
)

// TreeExt is the extension of the front end's serialized syntax trees.
const TreeExt = ".cnxast"

// listTreeFiles returns the sorted list of serialized tree documents under
// dir. Sorting fixes the declaration order, which fixes everything
// downstream.
func listTreeFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, TreeExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile decodes one serialized tree document.
func LoadFile(path string) (*ast.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var file ast.File
	if err := msgpack.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if file.Path == "" {
		file.Path = path
	}
	if file.Unit == "" {
		file.Unit = source.UnitName(file.Path)
	}
	return &file, nil
}

// loadAll loads every tree document and registers its path in the file set.
func loadAll(paths []string, fset *source.FileSet) ([]*ast.File, error) {
	files := make([]*ast.File, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		fset.Add(f.Path)
		files = append(files, f)
	}
	return files, nil
}
