// Package fileheader provides plugins that insert a comment block at the top
// of generated files.
package fileheader

import (
	"context"
	"strings"

	"github.com/agentic-research/roleforge/internal/plugin"
)

// Comment writes the header lines in one comment syntax.
type Comment struct {
	name   string
	exts   []string
	policy plugin.ApplyPolicy

	open   string // line opening the block, empty for line comments
	prefix string
	close  string

	// preamble reports whether a first line must stay first, like a shebang
	// or an XML declaration.
	preamble func(line string) bool
}

var _ plugin.FileHeader = (*Comment)(nil)

// Conf writes '#' line comments for shell, properties and YAML style files.
func Conf() *Comment {
	return &Comment{
		name:   "conf",
		exts:   []string{".conf", ".cfg", ".ini", ".properties", ".sh", ".toml", ".yaml", ".yml", ".tf", ".hcl", ".py"},
		policy: plugin.ApplyWhenUnconfigured,
		prefix: "# ",
		preamble: func(line string) bool {
			return strings.HasPrefix(line, "#!")
		},
	}
}

// XML writes an XML comment after the XML declaration.
func XML() *Comment {
	return &Comment{
		name:   "xml",
		exts:   []string{".xml", ".xhtml", ".html", ".svg"},
		policy: plugin.ApplyWhenUnconfigured,
		open:   "<!--",
		close:  "-->",
		preamble: func(line string) bool {
			return strings.HasPrefix(strings.TrimSpace(line), "<?xml") ||
				strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "<!doctype")
		},
	}
}

// CStyle writes a /* */ block comment.
func CStyle() *Comment {
	return &Comment{
		name:   "cstyle",
		exts:   []string{".c", ".h", ".css", ".go", ".java", ".js", ".jsonc", ".ts"},
		policy: plugin.ApplyWhenUnconfigured,
		open:   "/*",
		close:  "*/",
	}
}

func (c *Comment) Name() string { return c.name }

func (c *Comment) Accepts(file *plugin.FileContext) bool {
	return file.HasExt(c.exts...)
}

func (c *Comment) ImplicitApply(*plugin.FileContext) plugin.ApplyPolicy {
	return c.policy
}

// Apply prepends the comment block to the file.
func (c *Comment) Apply(_ context.Context, file *plugin.FileContext, lines []string) error {
	content, err := file.ReadText()
	if err != nil {
		return err
	}
	nl := file.LineEndings.Separator()
	block := c.Format(lines, nl)

	var head string
	if c.preamble != nil {
		first, rest, found := strings.Cut(content, nl)
		if c.preamble(first) {
			head = first + nl
			if found {
				content = rest
			} else {
				content = ""
			}
		}
	}
	return file.WriteText(head + block + content)
}

// Format renders lines as a comment block terminated by nl.
func (c *Comment) Format(lines []string, nl string) string {
	var b strings.Builder
	if c.open != "" {
		b.WriteString(c.open)
		b.WriteString(nl)
	}
	for _, l := range lines {
		b.WriteString(strings.TrimRight(c.prefix+l, " "))
		b.WriteString(nl)
	}
	if c.close != "" {
		b.WriteString(c.close)
		b.WriteString(nl)
	}
	return b.String()
}

// none is selected explicitly to suppress automatic headers.
type none struct{}

// None returns the header plugin that writes nothing.
func None() plugin.FileHeader { return none{} }

func (none) Name() string { return "none" }

func (none) Accepts(*plugin.FileContext) bool { return true }

func (none) ImplicitApply(*plugin.FileContext) plugin.ApplyPolicy { return plugin.ApplyNever }

func (none) Apply(context.Context, *plugin.FileContext, []string) error { return nil }
