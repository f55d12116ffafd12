package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/ctxlog"
	"github.com/agentic-research/roleforge/internal/role"
	"github.com/agentic-research/roleforge/internal/variable"
)

var (
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrUnknownMultiply = errors.New("unknown multiply mode")
	ErrPathEscapesNode = errors.New("file path escapes node directory")
)

// BuiltinKey is the config key holding the values roleforge provides to
// every node role, e.g. ${roleforge.node}.
const BuiltinKey = "roleforge"

const templateSuffix = ".tmpl"

// FileNamer derives a file name from a URL locator.
type FileNamer interface {
	FileName(ctx context.Context, locator string) (string, error)
}

// DependencyLister is implemented by FileNamers that can list the URL of a
// locator followed by the URLs of its dependencies.
type DependencyLister interface {
	FileURLsWithDependencies(ctx context.Context, locator string) ([]string, error)
}

// Options controls an environment generation run.
type Options struct {
	TargetDir string
	Version   string
	// Dependencies are listed in file headers after those of the environment.
	Dependencies         []string
	DeleteBeforeGenerate bool
	// Workers bounds the number of nodes generated concurrently; <= 0 means
	// one.
	Workers     int
	ExportModel bool
}

// Result describes the files generated for one environment.
type Result struct {
	Environment string
	Dir         string
	Nodes       []NodeResult
}

// NodeResult describes the files generated for one node.
type NodeResult struct {
	Node  string
	Dir   string
	Roles []RoleResult
}

// RoleResult describes one role of a node.
type RoleResult struct {
	Role     string
	Variants []string
	// Chain lists the inherited roles, root first, ending with Role.
	Chain  []string
	Config map[string]any
	Files  []FileResult
}

// FileResult describes one role file and everything produced from it.
type FileResult struct {
	// Role is the role of the chain that defined the file.
	Role     string
	Path     string
	Template string
	URL      string
	// URLs lists the resolved URL and dependency URLs of URL files.
	URLs         []string
	Tenant       string
	ModelOptions map[string]any
	Generated    []GeneratedFile
}

// Generator generates environments.
type Generator struct {
	roles    role.Registry
	files    *FileGenerator
	resolver *variable.Resolver
	names    FileNamer
	opts     Options
}

// New returns a Generator. names may be nil when no role file relies on a
// file name derived from its URL.
func New(roles role.Registry, files *FileGenerator, resolver *variable.Resolver, names FileNamer, opts Options) *Generator {
	if resolver == nil {
		resolver = variable.NewResolver()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Generator{roles: roles, files: files, resolver: resolver, names: names, opts: opts}
}

// Generate resolves env and writes the files of all its nodes below
// TargetDir/<environment>/<node>.
func (g *Generator) Generate(ctx context.Context, env *api.Environment) (*Result, error) {
	log := ctxlog.FromContext(ctx).With("environment", env.Name)
	ctx = ctxlog.WithLogger(ctx, log)

	envDir := filepath.Join(g.opts.TargetDir, env.Name)
	if g.opts.DeleteBeforeGenerate {
		log.Debug("delete previous output", "dir", envDir)
		if err := os.RemoveAll(envDir); err != nil {
			return nil, fmt.Errorf("delete %s: %w", envDir, err)
		}
	}

	root, err := g.scopes(env)
	if err != nil {
		return nil, err
	}
	if err := g.resolver.ResolveTree(ctx, root); err != nil {
		return nil, err
	}

	result := &Result{Environment: env.Name, Dir: envDir, Nodes: make([]NodeResult, len(root.nodes))}
	deps := append(slices.Clone(env.Dependencies), g.opts.Dependencies...)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, node := range root.nodes {
		eg.Go(func() error {
			nr, err := g.generateNode(egCtx, env, node, filepath.Join(envDir, node.node.Node), deps)
			if err != nil {
				return err
			}
			result.Nodes[i] = *nr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.Info("environment generated", "nodes", len(result.Nodes))
	return result, nil
}

// scopes builds the unresolved scope tree of env. Each node role carries
// config merged from the role chain, the selected variants, the environment,
// the environment role config, the node and the node role, in that order.
func (g *Generator) scopes(env *api.Environment) (*environmentScope, error) {
	root := &environmentScope{env: env}
	for i := range env.Nodes {
		node := &env.Nodes[i]
		ns := &nodeScope{node: node}
		where := fmt.Sprintf("environment %s, node %s", env.Name, node.Node)

		for _, nr := range node.Roles {
			chain, err := role.Resolve(nr.Role, where, g.roles)
			if err != nil {
				return nil, err
			}
			cfg := chain.Config()
			for _, v := range nr.Variants {
				variant, ok := chain.Variant(v)
				if !ok {
					return nil, fmt.Errorf("%s, role %s: %w: %s", where, nr.Role, ErrUnknownVariant, v)
				}
				cfg = role.MergeConfig(cfg, variant.Config)
			}
			cfg = role.MergeConfig(cfg, env.Config)
			cfg = role.MergeConfig(cfg, env.ConfigForRole(nr.Role))
			cfg = role.MergeConfig(cfg, node.Config)
			cfg = role.MergeConfig(cfg, nr.Config)
			cfg = role.MergeConfig(cfg, map[string]any{BuiltinKey: g.builtins(env, node, nr)})

			ns.roles = append(ns.roles, &nodeRoleScope{node: node.Node, nodeRole: nr, chain: chain, config: cfg})
		}
		root.nodes = append(root.nodes, ns)
	}
	return root, nil
}

func (g *Generator) builtins(env *api.Environment, node *api.Node, nr api.NodeRole) map[string]any {
	variants := make([]any, len(nr.Variants))
	for i, v := range nr.Variants {
		variants[i] = v
	}
	return map[string]any{
		"environment": env.Name,
		"node":        node.Node,
		"role":        nr.Role,
		"variants":    variants,
		"version":     g.opts.Version,
	}
}

func (g *Generator) generateNode(ctx context.Context, env *api.Environment, node *nodeScope, dir string, deps []string) (*NodeResult, error) {
	log := ctxlog.FromContext(ctx).With("node", node.node.Node)
	ctx = ctxlog.WithLogger(ctx, log)
	log.Info("generate node", "dir", dir)

	out := &NodeResult{Node: node.node.Node, Dir: dir}
	for _, rs := range node.roles {
		roleCtx := ctxlog.WithLogger(ctx, log.With("role", rs.nodeRole.Role))
		rr := RoleResult{
			Role:     rs.nodeRole.Role,
			Variants: rs.nodeRole.Variants,
			Chain:    rs.chain.Names(),
			Config:   rs.config,
		}
		for _, rf := range rs.chain.Files() {
			if !rf.File.HasVariant(rs.nodeRole.Variants) {
				continue
			}
			files, err := g.generateRoleFile(roleCtx, env, rs, rf, dir, deps)
			if err != nil {
				return nil, err
			}
			rr.Files = append(rr.Files, files...)
		}
		out.Roles = append(out.Roles, rr)
	}

	if g.opts.ExportModel {
		if err := ExportModel(dir, env.Name, g.opts.Version, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// generateRoleFile generates rf once, or once per tenant for tenant
// multiplied files.
func (g *Generator) generateRoleFile(ctx context.Context, env *api.Environment, rs *nodeRoleScope, rf role.ResolvedFile, dir string, deps []string) ([]FileResult, error) {
	switch rf.File.Multiply {
	case "":
		fr, err := g.generateFile(ctx, env, rs, rf, dir, deps, rs.config, "")
		if err != nil || fr == nil {
			return nil, err
		}
		return []FileResult{*fr}, nil
	case api.MultiplyTenant:
		var out []FileResult
		for _, t := range env.TenantsForRole(rs.nodeRole.Role) {
			raw := role.MergeConfig(rs.config, t.Config)
			raw = role.MergeConfig(raw, map[string]any{BuiltinKey: map[string]any{"tenant": t.Tenant}})
			cfg, err := g.resolver.ResolveMap(ctx, raw)
			if err != nil {
				return nil, fmt.Errorf("tenant %s: %w", t.Tenant, err)
			}
			fr, err := g.generateFile(ctx, env, rs, rf, dir, deps, cfg, t.Tenant)
			if err != nil {
				return nil, err
			}
			if fr != nil {
				out = append(out, *fr)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("role %s, file %s: %w: %s", rf.Role, rf.File.File, ErrUnknownMultiply, rf.File.Multiply)
	}
}

// generateFile resolves the placeholders of one role file against config
// and runs the file pipeline. It returns nil when the file's condition is
// false.
func (g *Generator) generateFile(ctx context.Context, env *api.Environment, rs *nodeRoleScope, rf role.ResolvedFile, dir string, deps []string, config map[string]any, tenant string) (*FileResult, error) {
	f := rf.File
	if f.Condition != "" {
		v, err := g.resolver.ResolveValue(ctx, f.Condition, config)
		if err != nil {
			return nil, fmt.Errorf("role %s, condition %q: %w", rf.Role, f.Condition, err)
		}
		if !truthy(v) {
			ctxlog.FromContext(ctx).Debug("skip file", "role", rf.Role, "file", f.File, "condition", f.Condition)
			return nil, nil
		}
	}

	var fields [4]string
	for i, s := range []string{f.File, f.Dir, f.Template, f.URL} {
		v, err := g.resolver.ResolveString(ctx, s, config)
		if err != nil {
			return nil, fmt.Errorf("role %s, file %s: %w", rf.Role, f.File, err)
		}
		fields[i] = variable.Deescape(v).(string)
	}
	name, subdir, tmpl, url := fields[0], fields[1], fields[2], fields[3]

	if name == "" {
		var err error
		if name, err = g.defaultName(ctx, tmpl, url); err != nil {
			return nil, fmt.Errorf("role %s: %w", rf.Role, err)
		}
	}
	target := filepath.Join(dir, subdir, name)
	if rel, err := filepath.Rel(dir, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("role %s: %w: %s", rf.Role, ErrPathEscapesNode, target)
	}

	generated, err := g.files.Generate(ctx, FileDescriptor{
		Environment:  env.Name,
		Node:         rs.node,
		Role:         rs.nodeRole.Role,
		Variants:     rs.nodeRole.Variants,
		TemplateDir:  rf.TemplateDir,
		Template:     tmpl,
		URL:          url,
		Path:         target,
		File:         f,
		Config:       config,
		Version:      g.opts.Version,
		Dependencies: deps,
	})
	if err != nil {
		return nil, err
	}
	var urls []string
	if dl, ok := g.names.(DependencyLister); ok && url != "" {
		if urls, err = dl.FileURLsWithDependencies(ctx, url); err != nil {
			return nil, fmt.Errorf("role %s, url %s: %w", rf.Role, url, err)
		}
	}
	return &FileResult{
		Role:         rf.Role,
		Path:         target,
		Template:     tmpl,
		URL:          url,
		URLs:         urls,
		Tenant:       tenant,
		ModelOptions: f.ModelOptions,
		Generated:    generated,
	}, nil
}

// defaultName derives a file name from the URL, or from the template name
// without its .tmpl suffix.
func (g *Generator) defaultName(ctx context.Context, tmpl, url string) (string, error) {
	switch {
	case url != "" && g.names != nil:
		return g.names.FileName(ctx, url)
	case url != "":
		return path.Base(url), nil
	case tmpl != "":
		return strings.TrimSuffix(path.Base(tmpl), templateSuffix), nil
	default:
		return "", ErrMissingContentSource
	}
}

// truthy interprets a resolved condition value.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0", "no", "off":
			return false
		}
		return true
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
