package errors

import (
	"fmt"
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
)

// ExtractContext returns the lines of source surrounding loc, numbered, with
// the offending line marked by ">". It returns "" when loc has no line.
func ExtractContext(source string, loc ast.Location, contextLines int) string {
	if !loc.IsValid() || source == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")

	errorLine := loc.Line - 1
	if errorLine >= len(lines) {
		return ""
	}
	start := max(errorLine-contextLines, 0)
	end := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", end+1))
	for i := start; i <= end; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%*d | %s\n", prefix, width, i+1, lines[i]))
	}
	return sb.String()
}

// Describe formats err with the source context of its location.
func Describe(err *Error, source string) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")
	if err.Location != nil {
		sb.WriteString(ExtractContext(source, *err.Location, 2))
	}
	return sb.String()
}
