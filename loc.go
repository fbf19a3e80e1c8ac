package lumen

import "fmt"

// FileLoc identifies a position in a scene-description file. The external
// parser attaches one to every directive call; lumen uses it only for
// diagnostics.
type FileLoc struct {
	Filename string
	Line     int
	Column   int
}

// String returns the location in "file:line:column" form, or "<unknown>"
// for the zero value.
func (l FileLoc) String() string {
	if l.Filename == "" && l.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// IsZero reports whether the location carries no position information.
func (l FileLoc) IsZero() bool {
	return l == FileLoc{}
}
