package ast

import "fmt"

// Location represents the source location of a node in the sandboxed program.
// It enables precise error reporting with file, line, and column information.
type Location struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty"`     // Path or label of the source
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`     // Line number (1-based)
	Column int    `json:"column,omitempty" yaml:"column,omitempty"` // Column number (1-based)
}

// String returns a human-readable representation of the location.
// Format: "file:line:column"
func (l Location) String() string {
	if l.Line <= 0 {
		return "<unknown>"
	}
	file := l.File
	if file == "" {
		file = "<sandbox>"
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// IsValid returns true if the location has line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}
