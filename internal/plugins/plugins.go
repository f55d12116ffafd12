// Package plugins assembles the built-in plugin set.
package plugins

import (
	"net/http"

	"github.com/agentic-research/roleforge/internal/fileheader"
	"github.com/agentic-research/roleforge/internal/plugin"
	"github.com/agentic-research/roleforge/internal/postprocess"
	"github.com/agentic-research/roleforge/internal/urlfile"
	"github.com/agentic-research/roleforge/internal/validate"
)

// Options configures the built-in content sources.
type Options struct {
	// BaseDir resolves relative file locators.
	BaseDir string
	// HTTPClient fetches http(s) locators; nil uses a client with a
	// default timeout.
	HTTPClient *http.Client
	// ValueProviders are registered after the built-in plugins.
	ValueProviders []plugin.ValueProvider
}

// Default returns a registry holding every built-in plugin. Header plugins
// are registered in selection order: the first accepting when-unconfigured
// header wins.
func Default(opts Options) (*plugin.Registry, error) {
	fsSource, err := urlfile.NewOSFilesystem(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	reg := plugin.NewRegistry()
	for _, p := range []plugin.Plugin{
		fileheader.Conf(),
		fileheader.XML(),
		fileheader.CStyle(),
		fileheader.None(),

		validate.JSON(),
		validate.YAML(),
		validate.HCL(),
		validate.XML(),
		validate.Syntax(),
		validate.None(),

		postprocess.Gofmt(),
		postprocess.JSONC(),
		postprocess.Markdown(),
		postprocess.Compress(),

		urlfile.NewHTTP(opts.HTTPClient),
		fsSource,
	} {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	for _, vp := range opts.ValueProviders {
		if err := reg.Register(vp); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Sources returns a content source manager over the registered sources.
func Sources(reg *plugin.Registry) *urlfile.Manager {
	return urlfile.NewManager(reg.ContentSources()...)
}
