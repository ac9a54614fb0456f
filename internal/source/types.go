package source

import "fmt"

// FileID identifies a registered source file.
type FileID uint32

// NoFileID marks the absence of a file reference.
const NoFileID FileID = 0

// IsValid reports whether the ID refers to a registered file.
func (id FileID) IsValid() bool { return id != NoFileID }

// Pos is a resolved source position as delivered by the front end.
// Line and Col are 1-based; a zero Pos means "no position".
type Pos struct {
	File FileID `msgpack:"file"`
	Line uint32 `msgpack:"line"`
	Col  uint32 `msgpack:"col"`
}

// IsValid reports whether the position carries real location data.
func (p Pos) IsValid() bool { return p.File.IsValid() && p.Line > 0 }

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d:%d", p.File, p.Line, p.Col)
}

// Before reports whether p sorts before other in (file, line, col) order.
func (p Pos) Before(other Pos) bool {
	if p.File != other.File {
		return p.File < other.File
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}
