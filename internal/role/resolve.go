// Package role resolves role inheritance into a merged chain of role
// definitions.
package role

import (
	"slices"
	"sort"

	"github.com/agentic-research/roleforge/api"
)

// Registry looks up role definitions by name.
type Registry interface {
	Role(name string) (*api.Role, bool)
}

// MapRegistry is a Registry backed by a plain map.
type MapRegistry map[string]*api.Role

// Role implements Registry.
func (m MapRegistry) Role(name string) (*api.Role, bool) {
	r, ok := m[name]
	return r, ok
}

// Names returns the registered role names in sorted order.
func (m MapRegistry) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entry is one role of a resolved chain. Its Role carries the config merged
// over all ancestors, only the files it still contributes after descendants
// have overridden theirs, and its own variants with descendant overrides
// applied.
type Entry struct {
	Name string
	Role api.Role
}

// ResolvedFile is a file of the flattened chain with the role it came from.
type ResolvedFile struct {
	Role        string
	TemplateDir string
	File        api.RoleFile
}

// Chain is the resolved inheritance chain of a role, root ancestor first and
// the target role last.
type Chain struct {
	entries  []Entry
	config   map[string]any
	files    []ResolvedFile
	variants []api.RoleVariant
}

// Entries returns the per-role view of the chain.
func (c *Chain) Entries() []Entry { return c.entries }

// Target returns the entry of the role that was resolved.
func (c *Chain) Target() Entry { return c.entries[len(c.entries)-1] }

// Names returns the role names in chain order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Config returns the config merged across the whole chain.
func (c *Chain) Config() map[string]any { return c.config }

// Files returns the surviving files in merge order. A file redefined by a
// descendant sits at the position of the ancestor's entry.
func (c *Chain) Files() []ResolvedFile { return c.files }

// Variants returns all variants declared along the chain, merged by name.
func (c *Chain) Variants() []api.RoleVariant { return c.variants }

// Variant looks up a merged variant by name.
func (c *Chain) Variant(name string) (api.RoleVariant, bool) {
	return findVariant(c.variants, name)
}

// Resolve walks the inheritance graph of roleName and merges it into a
// chain. context is included in errors to identify the caller.
// Resolve never modifies the registry.
func Resolve(roleName, context string, registry Registry) (*Chain, error) {
	order, err := linearize(roleName, context, registry)
	if err != nil {
		return nil, err
	}

	var (
		config      map[string]any
		files       []ResolvedFile
		variants    []api.RoleVariant
		hasVariants bool
	)
	for i, name := range order {
		r, _ := registry.Role(name)

		if hasVariants && len(r.Variants) == 0 {
			return nil, &ResolveError{Context: context, Role: name, Path: order[:i+1], Err: ErrIncompatibleVariantInheritance}
		}
		if len(r.Variants) > 0 {
			hasVariants = true
		}

		config = MergeConfig(config, r.Config)
		variants = mergeVariants(variants, r.Variants)

		templateDir := r.TemplateDir
		if templateDir == "" {
			templateDir = name
		}
		for _, f := range r.Files {
			rf := ResolvedFile{Role: name, TemplateDir: templateDir, File: copyFile(f)}
			idx := slices.IndexFunc(files, func(e ResolvedFile) bool {
				return e.File.Identity() == f.Identity()
			})
			if idx >= 0 {
				files[idx] = rf
			} else {
				files = append(files, rf)
			}
		}
	}
	if config == nil {
		config = map[string]any{}
	}

	owner := make(map[string]string, len(files))
	for _, f := range files {
		owner[f.File.Identity()] = f.Role
	}

	entries := make([]Entry, len(order))
	for i, name := range order {
		r, _ := registry.Role(name)
		e := Entry{Name: name}
		e.Role.TemplateDir = r.TemplateDir
		e.Role.Inherits = slices.Clone(r.Inherits)
		e.Role.Config = CopyConfig(config)
		for _, f := range r.Files {
			if owner[f.Identity()] == name {
				e.Role.Files = append(e.Role.Files, copyFile(f))
			}
		}
		for _, own := range r.Variants {
			if v, ok := findVariant(variants, own.Variant); ok {
				e.Role.Variants = append(e.Role.Variants, api.RoleVariant{Variant: v.Variant, Config: CopyConfig(v.Config)})
			}
		}
		entries[i] = e
	}

	return &Chain{entries: entries, config: config, files: files, variants: variants}, nil
}

// linearize returns roleName and its ancestors depth-first, root first. A
// role reachable over several paths is listed once at its first position.
func linearize(roleName, context string, registry Registry) ([]string, error) {
	var (
		order []string
		done  = map[string]bool{}
		path  []string
	)
	var visit func(name string) error
	visit = func(name string) error {
		if slices.Contains(path, name) {
			return &ResolveError{Context: context, Role: name, Path: append(slices.Clone(path), name), Err: ErrCyclicInheritance}
		}
		if done[name] {
			return nil
		}
		r, ok := registry.Role(name)
		if !ok || r == nil {
			return &ResolveError{Context: context, Role: name, Path: slices.Clone(path), Err: ErrUnknownRole}
		}
		path = append(path, name)
		for _, inh := range r.Inherits {
			if err := visit(inh.Role); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		done[name] = true
		order = append(order, name)
		return nil
	}
	if err := visit(roleName); err != nil {
		return nil, err
	}
	return order, nil
}

func mergeVariants(base, override []api.RoleVariant) []api.RoleVariant {
	for _, v := range override {
		idx := slices.IndexFunc(base, func(b api.RoleVariant) bool { return b.Variant == v.Variant })
		if idx >= 0 {
			base[idx].Config = MergeConfig(base[idx].Config, v.Config)
			continue
		}
		base = append(base, api.RoleVariant{Variant: v.Variant, Config: CopyConfig(v.Config)})
	}
	return base
}

func findVariant(variants []api.RoleVariant, name string) (api.RoleVariant, bool) {
	for _, v := range variants {
		if v.Variant == name {
			return v, true
		}
	}
	return api.RoleVariant{}, false
}

func copyFile(f api.RoleFile) api.RoleFile {
	f.Variants = slices.Clone(f.Variants)
	f.Validators = slices.Clone(f.Validators)
	f.PostProcessors = slices.Clone(f.PostProcessors)
	f.ValidatorOptions = CopyConfig(f.ValidatorOptions)
	f.PostProcessorOptions = CopyConfig(f.PostProcessorOptions)
	f.ModelOptions = CopyConfig(f.ModelOptions)
	return f
}
