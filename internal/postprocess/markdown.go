package postprocess

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/agentic-research/roleforge/internal/plugin"
)

type markdown struct {
	md goldmark.Markdown
}

// Markdown renders a .md file to an .html sibling. The source is kept
// unless the "keepSource" option is false.
func Markdown() plugin.PostProcessor {
	return &markdown{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (m *markdown) Name() string { return "markdown" }

func (m *markdown) Accepts(file *plugin.FileContext) bool { return file.HasExt(".md", ".markdown") }

func (m *markdown) Apply(_ context.Context, file *plugin.FileContext, opts plugin.Options) ([]*plugin.FileContext, error) {
	source, err := file.ReadText()
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := m.md.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("render markdown %s: %w", file.Path, err)
	}

	htmlPath := strings.TrimSuffix(file.Path, filepath.Ext(file.Path)) + ".html"
	out := file.Derive(htmlPath)
	if title := opts.String("title", ""); title != "" {
		page := "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"" + out.Charset + "\">\n<title>" + title + "</title>\n</head>\n<body>\n" +
			body.String() + "</body>\n</html>\n"
		body.Reset()
		body.WriteString(page)
	}
	if err := out.WriteText(body.String()); err != nil {
		return nil, err
	}

	if !opts.Bool("keepSource", true) {
		if err := file.Remove(); err != nil {
			return nil, err
		}
		return []*plugin.FileContext{out}, nil
	}
	return []*plugin.FileContext{file, out}, nil
}
