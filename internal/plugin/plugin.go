// Package plugin defines the extension points of the generation pipeline
// and a name-keyed registry holding their implementations.
package plugin

import (
	"context"
	"io"
)

// Plugin is implemented by every extension.
type Plugin interface {
	Name() string
}

// ApplyPolicy controls whether a file header plugin is applied to files that
// do not name a header explicitly.
type ApplyPolicy int

const (
	ApplyNever ApplyPolicy = iota
	ApplyWhenUnconfigured
	ApplyAlways
)

func (p ApplyPolicy) String() string {
	switch p {
	case ApplyWhenUnconfigured:
		return "when-unconfigured"
	case ApplyAlways:
		return "always"
	default:
		return "never"
	}
}

// FileHeader inserts a comment block into a generated file.
type FileHeader interface {
	Plugin
	Accepts(file *FileContext) bool
	ImplicitApply(file *FileContext) ApplyPolicy
	Apply(ctx context.Context, file *FileContext, lines []string) error
}

// Validator checks the content of a generated file.
type Validator interface {
	Plugin
	Accepts(file *FileContext) bool
	Validate(ctx context.Context, file *FileContext, opts Options) error
}

// PostProcessor transforms a generated file. It returns the files it
// produced; it may delete or rename its input.
type PostProcessor interface {
	Plugin
	Accepts(file *FileContext) bool
	Apply(ctx context.Context, file *FileContext, opts Options) ([]*FileContext, error)
}

// ContentSource fetches file content from a locator such as a URL.
type ContentSource interface {
	Plugin
	Accepts(locator string) bool
	FileName(ctx context.Context, locator string) (string, error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	FileURL(ctx context.Context, locator string) (string, error)
}

// DependencyResolver is an optional ContentSource capability listing the
// locator's own URL plus those of its transitive dependencies.
type DependencyResolver interface {
	FileURLsWithDependencies(ctx context.Context, locator string) ([]string, error)
}

// FileURLsWithDependencies returns the dependency URLs of locator if src
// supports it, otherwise just its FileURL.
func FileURLsWithDependencies(ctx context.Context, src ContentSource, locator string) ([]string, error) {
	if dr, ok := src.(DependencyResolver); ok {
		return dr.FileURLsWithDependencies(ctx, locator)
	}
	u, err := src.FileURL(ctx, locator)
	if err != nil {
		return nil, err
	}
	return []string{u}, nil
}

// ValueProvider supplies variable values not defined in configuration.
type ValueProvider interface {
	Plugin
	Resolve(ctx context.Context, name string) (value any, ok bool, err error)
}
