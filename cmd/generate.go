package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/roleforge/internal/ctxlog"
	"github.com/agentic-research/roleforge/internal/generator"
	"github.com/agentic-research/roleforge/internal/manifest"
	"github.com/agentic-research/roleforge/internal/plugins"
	"github.com/agentic-research/roleforge/internal/project"
	"github.com/agentic-research/roleforge/internal/render"
	"github.com/agentic-research/roleforge/internal/variable"
)

var (
	targetDir   string
	version     string
	workers     int
	exportModel bool
	deleteFirst bool
)

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&targetDir, "target", "t", "", "Output directory (overrides roleforge.yaml)")
	f.StringVar(&version, "version", "", "Version written to file headers (overrides roleforge.yaml)")
	f.IntVarP(&workers, "workers", "w", 0, "Nodes generated concurrently (overrides roleforge.yaml)")
	f.BoolVar(&exportModel, "export-model", false, "Write model.yaml per node")
	f.BoolVar(&deleteFirst, "delete", false, "Delete previous output of each environment first")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [environment...]",
	Short: "Generate the files of the given environments, or of all environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := project.Load(projectDir)
		if err != nil {
			return err
		}
		opts := generatorOptions(cmd, p)

		envs, err := p.SelectEnvironments(args...)
		if err != nil {
			return err
		}
		if len(envs) == 0 {
			return fmt.Errorf("no environments found in %s", p.Dir)
		}
		g, err := newGenerator(p, opts)
		if err != nil {
			return err
		}

		var store *manifest.Store
		if path := p.ManifestPath(); path != "" {
			if store, err = manifest.Open(path); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
		}

		ctx := cmd.Context()
		for _, env := range envs {
			res, err := g.Generate(ctx, env)
			if err != nil {
				return fmt.Errorf("environment %s: %w", env.Name, err)
			}
			if store != nil {
				if err := record(ctx, store, res, opts.Version); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d files in %s\n", env.Name, len(res.Nodes), countFiles(res), res.Dir)
		}
		return nil
	},
}

func generatorOptions(cmd *cobra.Command, p *project.Project) generator.Options {
	opts := generator.Options{
		TargetDir:            p.TargetDir(),
		Version:              p.Config.Version,
		Dependencies:         p.Config.Dependencies,
		DeleteBeforeGenerate: p.Config.DeleteBeforeGenerate,
		Workers:              p.Config.Workers,
		ExportModel:          p.Config.ExportModel,
	}
	f := cmd.Flags()
	if f.Changed("target") {
		opts.TargetDir = targetDir
	}
	if f.Changed("version") {
		opts.Version = version
	}
	if f.Changed("workers") {
		opts.Workers = workers
	}
	if f.Changed("export-model") {
		opts.ExportModel = exportModel
	}
	if f.Changed("delete") {
		opts.DeleteBeforeGenerate = deleteFirst
	}
	return opts
}

// newGenerator wires the built-in plugins, the project's value providers
// and its roles into a generator.
func newGenerator(p *project.Project, opts generator.Options) (*generator.Generator, error) {
	providers, err := p.ValueProviders()
	if err != nil {
		return nil, err
	}
	reg, err := plugins.Default(plugins.Options{BaseDir: p.Dir, ValueProviders: providers})
	if err != nil {
		return nil, err
	}
	roles, err := p.Roles()
	if err != nil {
		return nil, err
	}

	var vars []variable.Provider
	for _, vp := range reg.ValueProviders() {
		vars = append(vars, vp)
	}
	resolver := variable.NewResolver(vars...)
	sources := plugins.Sources(reg)
	files := generator.NewFileGenerator(reg, render.New(p.TemplateRoots()...), sources, resolver)
	return generator.New(roles, files, resolver, sources, opts), nil
}

// record stores res in the manifest and logs how many files changed since
// the previous run of the environment.
func record(ctx context.Context, store *manifest.Store, res *generator.Result, version string) error {
	log := ctxlog.FromContext(ctx).With("environment", res.Environment)
	prev, err := store.LatestRun(ctx, res.Environment)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	runID, err := store.Record(ctx, res, version)
	if err != nil {
		return err
	}
	if prev == nil {
		log.Info("manifest recorded", "run", runID)
		return nil
	}
	changed, err := store.Changed(ctx, prev.ID, runID)
	if err != nil {
		return err
	}
	log.Info("manifest recorded", "run", runID, "previous_run", prev.ID, "changed", len(changed))
	for _, path := range changed {
		log.Debug("changed file", "path", path)
	}
	return nil
}

func countFiles(res *generator.Result) int {
	n := 0
	for _, node := range res.Nodes {
		for _, r := range node.Roles {
			for _, f := range r.Files {
				n += len(f.Generated)
			}
		}
	}
	return n
}
