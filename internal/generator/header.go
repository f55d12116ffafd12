package generator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const headerNotice = "This file is AUTO-GENERATED by roleforge. Please do not change it manually."

// snapshotQualifier matches timestamped snapshot builds such as
// 1.2.0-20180116.233128-5.
var snapshotQualifier = regexp.MustCompile(`-\d{8}\.\d{6}-\d+`)

// HeaderInfo identifies how a file was generated.
type HeaderInfo struct {
	Version      string
	Environment  string
	Role         string
	Variant      string
	Template     string
	Dependencies []string
}

// HeaderLines builds the framed comment lines handed to file header
// plugins.
func HeaderLines(info HeaderInfo) []string {
	lines := []string{headerNotice, ""}
	if info.Version != "" {
		lines = append(lines, "Version "+info.Version)
	}
	lines = append(lines,
		"Environment: "+info.Environment,
		"Role: "+info.Role,
	)
	if strings.TrimSpace(info.Variant) != "" {
		lines = append(lines, "Variant: "+info.Variant)
	}
	lines = append(lines, "Template: "+info.Template)

	if len(info.Dependencies) > 0 {
		lines = append(lines, "", "Dependencies:")
		for _, d := range info.Dependencies {
			lines = append(lines, NormalizeSnapshot(d))
		}
	}
	return frame(lines)
}

// NormalizeSnapshot replaces timestamped snapshot qualifiers with
// -SNAPSHOT so headers stay stable across snapshot builds.
func NormalizeSnapshot(version string) string {
	return snapshotQualifier.ReplaceAllString(version, "-SNAPSHOT")
}

// frame surrounds lines with separators as wide as the longest line in
// characters.
func frame(lines []string) []string {
	width := 0
	for _, l := range lines {
		width = max(width, utf8.RuneCountInString(l))
	}
	sep := strings.Repeat("*", width+4)

	out := make([]string, 0, len(lines)+4)
	out = append(out, sep, "")
	for _, l := range lines {
		out = append(out, "  "+l)
	}
	return append(out, "", sep)
}
