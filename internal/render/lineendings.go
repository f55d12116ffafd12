package render

import (
	"strings"

	"github.com/agentic-research/roleforge/api"
)

// NormalizeLineEndings converts windows and classic mac line endings to \n.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ConvertLineEndings rewrites \n line endings of s to the given style. s is
// expected to be normalized.
func ConvertLineEndings(s string, style api.LineEndings) string {
	sep := style.Separator()
	if sep == "\n" {
		return s
	}
	return strings.ReplaceAll(s, "\n", sep)
}
