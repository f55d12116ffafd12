package postprocess

import (
	"context"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/agentic-research/roleforge/internal/plugin"
)

type jsoncStrip struct{}

// JSONC converts a .jsonc file into a plain .json sibling and removes the
// source file.
func JSONC() plugin.PostProcessor { return jsoncStrip{} }

func (jsoncStrip) Name() string { return "jsonc" }

func (jsoncStrip) Accepts(file *plugin.FileContext) bool { return file.HasExt(".jsonc") }

func (jsoncStrip) Apply(_ context.Context, file *plugin.FileContext, _ plugin.Options) ([]*plugin.FileContext, error) {
	content, err := file.ReadBytes()
	if err != nil {
		return nil, err
	}
	out := file.Derive(strings.TrimSuffix(file.Path, ".jsonc") + ".json")
	if err := out.WriteBytes(jsonc.ToJSON(content)); err != nil {
		return nil, err
	}
	if err := file.Remove(); err != nil {
		return nil, err
	}
	return []*plugin.FileContext{out}, nil
}
