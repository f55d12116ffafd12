// Package validate provides validator plugins that reject malformed
// generated files.
package validate

import (
	"context"
	"fmt"

	"github.com/agentic-research/roleforge/internal/plugin"
)

// ValidationError contains structured information about an invalid file.
type ValidationError struct {
	Validator string
	FilePath  string
	Line      uint32 // 0-indexed
	Column    uint32 // 0-indexed
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s:%d:%d: %s", e.Validator, e.FilePath, e.Line+1, e.Column+1, e.Message)
}

// checkFunc validates raw file content.
type checkFunc func(ctx context.Context, content []byte, path string) error

// byExtension is a validator accepting files by extension.
type byExtension struct {
	name  string
	exts  []string
	check checkFunc
}

func (v *byExtension) Name() string { return v.name }

func (v *byExtension) Accepts(file *plugin.FileContext) bool {
	return file.HasExt(v.exts...)
}

func (v *byExtension) Validate(ctx context.Context, file *plugin.FileContext, _ plugin.Options) error {
	content, err := file.ReadBytes()
	if err != nil {
		return fmt.Errorf("read %s: %w", file.Path, err)
	}
	if err := v.check(ctx, content, file.Path); err != nil {
		if _, ok := err.(*ValidationError); ok {
			return err
		}
		return &ValidationError{Validator: v.name, FilePath: file.Path, Message: err.Error()}
	}
	return nil
}

// none accepts everything and checks nothing; naming it explicitly turns
// off automatic validation for a file.
type none struct{}

// None returns the no-op validator.
func None() plugin.Validator { return none{} }

func (none) Name() string { return "none" }

func (none) Accepts(*plugin.FileContext) bool { return false }

func (none) Validate(context.Context, *plugin.FileContext, plugin.Options) error { return nil }
