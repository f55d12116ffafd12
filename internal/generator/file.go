// Package generator turns resolved roles into files on disk.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/ctxlog"
	"github.com/agentic-research/roleforge/internal/plugin"
	"github.com/agentic-research/roleforge/internal/render"
	"github.com/agentic-research/roleforge/internal/role"
	"github.com/agentic-research/roleforge/internal/variable"
)

var (
	ErrMissingContentSource     = errors.New("role file defines neither template nor url")
	ErrConflictingContentSource = errors.New("role file defines both template and url")
)

// Renderer executes a named template of a role template directory.
type Renderer interface {
	Render(templateDir, name string, data map[string]any) (string, error)
}

// ContentOpener opens content referenced by URL.
type ContentOpener interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// FileDescriptor is one fully resolved file to generate.
type FileDescriptor struct {
	Environment string
	Node        string
	Role        string
	Variants    []string
	TemplateDir string
	Template    string
	URL         string
	// Path is the destination file.
	Path string
	// File carries encoding and plugin settings.
	File api.RoleFile
	// Config is the resolved config; escaped placeholders are still escaped.
	Config map[string]any

	Version      string
	Dependencies []string
}

func (d FileDescriptor) header() HeaderInfo {
	tmpl := d.Template
	if tmpl == "" {
		tmpl = d.URL
	}
	return HeaderInfo{
		Version:      d.Version,
		Environment:  d.Environment,
		Role:         d.Role,
		Variant:      strings.Join(d.Variants, ","),
		Template:     tmpl,
		Dependencies: d.Dependencies,
	}
}

// FileGenerator runs the per-file pipeline: acquire content, add header,
// validate, post-process. It holds no per-call state and is safe for
// concurrent use.
type FileGenerator struct {
	plugins  *plugin.Registry
	renderer Renderer
	sources  ContentOpener
	resolver *variable.Resolver
}

// NewFileGenerator wires the pipeline. resolver resolves plugin options and
// may be nil.
func NewFileGenerator(plugins *plugin.Registry, renderer Renderer, sources ContentOpener, resolver *variable.Resolver) *FileGenerator {
	if resolver == nil {
		resolver = variable.NewResolver()
	}
	return &FileGenerator{plugins: plugins, renderer: renderer, sources: sources, resolver: resolver}
}

// Generate produces the files for d and returns the consolidated set.
func (g *FileGenerator) Generate(ctx context.Context, d FileDescriptor) ([]GeneratedFile, error) {
	if err := g.checkPlugins(d.File); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path, err)
	}
	switch {
	case d.Template == "" && d.URL == "":
		return nil, fmt.Errorf("role %s, file %s: %w", d.Role, d.Path, ErrMissingContentSource)
	case d.Template != "" && d.URL != "":
		return nil, fmt.Errorf("role %s, file %s: %w", d.Role, d.Path, ErrConflictingContentSource)
	}

	validatorOpts, err := g.options(ctx, d.Config, d.File.ValidatorOptions)
	if err != nil {
		return nil, fmt.Errorf("%s: validator options: %w", d.Path, err)
	}
	postProcessorOpts, err := g.options(ctx, d.Config, d.File.PostProcessorOptions)
	if err != nil {
		return nil, fmt.Errorf("%s: post-processor options: %w", d.Path, err)
	}

	file := &plugin.FileContext{
		Path:         d.Path,
		Charset:      d.File.Charset,
		LineEndings:  d.File.LineEndings,
		ModelOptions: d.File.ModelOptions,
	}
	if file.Charset == "" {
		file.Charset = plugin.DefaultCharset
	}
	if file.LineEndings == "" {
		file.LineEndings = api.LineEndingsUnix
	}

	if err := os.MkdirAll(filepath.Dir(d.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", d.Path, err)
	}

	log := ctxlog.FromContext(ctx)
	if d.Template != "" {
		log.Info("generate file", "file", d.Path, "template", filepath.Join(d.TemplateDir, d.Template))
		err = g.writeTemplate(file, d)
	} else {
		log.Info("copy file", "file", d.Path, "url", d.URL)
		err = g.copySource(ctx, file, d.URL)
	}
	if err != nil {
		return nil, err
	}

	header := HeaderLines(d.header())
	if err := g.applyHeader(ctx, file, d.File.FileHeader, header); err != nil {
		return nil, err
	}
	if err := g.validate(ctx, file, d.File.Validators, validatorOpts); err != nil {
		return nil, err
	}
	return g.postProcess(ctx, file, d.File.PostProcessors, postProcessorOpts, validatorOpts, header)
}

// checkPlugins fails before anything is written when a referenced plugin
// is not registered.
func (g *FileGenerator) checkPlugins(f api.RoleFile) error {
	if f.FileHeader != "" {
		if _, err := g.plugins.FileHeader(f.FileHeader); err != nil {
			return err
		}
	}
	for _, name := range f.Validators {
		if _, err := g.plugins.Validator(name); err != nil {
			return err
		}
	}
	for _, name := range f.PostProcessors {
		if _, err := g.plugins.PostProcessor(name); err != nil {
			return err
		}
	}
	return nil
}

// options overlays plugin options on the file config and resolves
// placeholders in them.
func (g *FileGenerator) options(ctx context.Context, config, opts map[string]any) (plugin.Options, error) {
	if len(opts) == 0 {
		return plugin.Options(variable.DeescapeMap(config)), nil
	}
	resolved, err := g.resolver.ResolveMap(ctx, role.MergeConfig(config, opts))
	if err != nil {
		return nil, err
	}
	return plugin.Options(variable.DeescapeMap(resolved)), nil
}

func (g *FileGenerator) writeTemplate(file *plugin.FileContext, d FileDescriptor) error {
	text, err := g.renderer.Render(d.TemplateDir, d.Template, variable.DeescapeMap(d.Config))
	if err != nil {
		return fmt.Errorf("role %s: %w", d.Role, err)
	}
	text = render.ConvertLineEndings(render.NormalizeLineEndings(text), file.LineEndings)
	if err := file.WriteText(text); err != nil {
		return fmt.Errorf("write %s: %w", file.Path, err)
	}
	return nil
}

func (g *FileGenerator) copySource(ctx context.Context, file *plugin.FileContext, url string) error {
	if g.sources == nil {
		return fmt.Errorf("copy %s: no content sources configured", url)
	}
	in, err := g.sources.Open(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(file.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", file.Path, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s to %s: %w", url, file.Path, err)
	}
	return out.Close()
}

// applyHeader applies the named header plugin, or auto-selects: every
// accepting plugin with policy always, plus the first accepting plugin with
// policy when-unconfigured.
func (g *FileGenerator) applyHeader(ctx context.Context, file *plugin.FileContext, name string, lines []string) error {
	var selected []plugin.FileHeader
	if name != "" {
		h, err := g.plugins.FileHeader(name)
		if err != nil {
			return err
		}
		selected = append(selected, h)
	} else {
		implicitTaken := false
		for _, h := range g.plugins.FileHeaders() {
			if !h.Accepts(file) {
				continue
			}
			switch h.ImplicitApply(file) {
			case plugin.ApplyAlways:
				selected = append(selected, h)
			case plugin.ApplyWhenUnconfigured:
				if !implicitTaken {
					selected = append(selected, h)
					implicitTaken = true
				}
			}
		}
	}

	for _, h := range selected {
		ctxlog.FromContext(ctx).Debug("add file header", "file", file.Path, "header", h.Name())
		if err := h.Apply(ctx, file, lines); err != nil {
			return fmt.Errorf("file header %s on %s: %w", h.Name(), file.Path, err)
		}
	}
	return nil
}

// validate runs the named validators in order, or every accepting one.
func (g *FileGenerator) validate(ctx context.Context, file *plugin.FileContext, names []string, opts plugin.Options) error {
	var selected []plugin.Validator
	if len(names) > 0 {
		for _, n := range names {
			v, err := g.plugins.Validator(n)
			if err != nil {
				return err
			}
			selected = append(selected, v)
		}
	} else {
		for _, v := range g.plugins.Validators() {
			if v.Accepts(file) {
				selected = append(selected, v)
			}
		}
	}

	for _, v := range selected {
		ctxlog.FromContext(ctx).Debug("validate", "file", file.Path, "validator", v.Name())
		if err := v.Validate(ctx, file, opts); err != nil {
			return err
		}
	}
	return nil
}

// postProcess folds the named post-processors over the consolidated file
// set, starting from the generated file.
func (g *FileGenerator) postProcess(ctx context.Context, file *plugin.FileContext, names []string, opts, validatorOpts plugin.Options, header []string) ([]GeneratedFile, error) {
	acc, err := newConsolidation(file)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		pp, err := g.plugins.PostProcessor(name)
		if err != nil {
			return nil, err
		}
		if acc, err = g.postProcessStage(ctx, acc, pp, opts, validatorOpts, header); err != nil {
			return nil, err
		}
	}
	return acc.records(), nil
}

// postProcessStage applies pp to every accepting file of acc. Files it
// outputs that were not known before get an automatic header and automatic
// validation with validatorOpts. Files that disappeared are dropped.
func (g *FileGenerator) postProcessStage(ctx context.Context, acc consolidation, pp plugin.PostProcessor, opts, validatorOpts plugin.Options, header []string) (consolidation, error) {
	next := acc.clone()
	for _, rec := range acc.records() {
		if !pp.Accepts(rec.File) {
			continue
		}
		ctxlog.FromContext(ctx).Info("post-process", "file", rec.File.Path, "post_processor", pp.Name())
		outputs, err := pp.Apply(ctx, rec.File, opts)
		if err != nil {
			return consolidation{}, fmt.Errorf("post-processor %s on %s: %w", pp.Name(), rec.File.Path, err)
		}
		next.touch(rec.CanonicalPath, pp.Name())

		for _, out := range outputs {
			key, err := out.CanonicalPath()
			if err != nil {
				return consolidation{}, err
			}
			if !next.has(key) {
				if err := g.applyHeader(ctx, out, "", header); err != nil {
					return consolidation{}, err
				}
				if err := g.validate(ctx, out, nil, validatorOpts); err != nil {
					return consolidation{}, err
				}
				next = next.add(key, out)
			}
			next.touch(key, pp.Name())
		}
	}
	return next.prune(), nil
}
