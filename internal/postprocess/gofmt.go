// Package postprocess provides post-processor plugins that transform
// generated files after validation.
package postprocess

import (
	"context"

	"mvdan.cc/gofumpt/format"

	"github.com/agentic-research/roleforge/internal/ctxlog"
	"github.com/agentic-research/roleforge/internal/plugin"
)

type gofmt struct{}

// Gofmt formats generated Go files with gofumpt.
func Gofmt() plugin.PostProcessor { return gofmt{} }

func (gofmt) Name() string { return "gofmt" }

func (gofmt) Accepts(file *plugin.FileContext) bool { return file.HasExt(".go") }

// Apply rewrites the file in place. Unparseable sources are left unchanged
// unless the "strict" option is set.
func (gofmt) Apply(ctx context.Context, file *plugin.FileContext, opts plugin.Options) ([]*plugin.FileContext, error) {
	content, err := file.ReadBytes()
	if err != nil {
		return nil, err
	}
	formatted, err := FormatGoBuffer(content, opts.String("lang", ""))
	if err != nil {
		if opts.Bool("strict", false) {
			return nil, err
		}
		ctxlog.FromContext(ctx).Warn("gofmt skipped", "file", file.Path, "error", err)
		return []*plugin.FileContext{file}, nil
	}
	if err := file.WriteBytes(formatted); err != nil {
		return nil, err
	}
	return []*plugin.FileContext{file}, nil
}

// FormatGoBuffer formats Go source code in-memory using gofumpt. lang is
// the Go version the source targets, e.g. "go1.22"; empty means latest.
func FormatGoBuffer(content []byte, lang string) ([]byte, error) {
	return format.Source(content, format.Options{LangVersion: lang})
}
