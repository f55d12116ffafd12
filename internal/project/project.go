// Package project loads a roleforge project: its settings file, role
// definitions and environment definitions.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/plugin"
	"github.com/agentic-research/roleforge/internal/role"
	"github.com/agentic-research/roleforge/internal/valueprovider"
)

// FileName is the project settings file looked up in the project directory.
const FileName = "roleforge.yaml"

var (
	ErrDuplicateRole        = errors.New("duplicate role")
	ErrDuplicateEnvironment = errors.New("duplicate environment")
	ErrUnknownEnvironment   = errors.New("unknown environment")
)

// Config is the content of roleforge.yaml. Relative paths are relative to
// the project directory.
type Config struct {
	RoleDirs             []string         `yaml:"roleDirs"`
	TemplateDirs         []string         `yaml:"templateDirs"`
	EnvironmentDirs      []string         `yaml:"environmentDirs"`
	TargetDir            string           `yaml:"targetDir"`
	Version              string           `yaml:"version"`
	Dependencies         []string         `yaml:"dependencies"`
	DeleteBeforeGenerate bool             `yaml:"deleteBeforeGenerate"`
	Workers              int              `yaml:"workers"`
	ExportModel          bool             `yaml:"exportModel"`
	Manifest             string           `yaml:"manifest"`
	ValueProviders       []ProviderConfig `yaml:"valueProviders"`
}

// ProviderConfig declares a value provider. Type is env, json or hcl; Path
// is required for json and hcl.
type ProviderConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// DefaultConfig returns the settings used for keys roleforge.yaml omits.
func DefaultConfig() Config {
	return Config{
		RoleDirs:        []string{"roles"},
		TemplateDirs:    []string{"templates"},
		EnvironmentDirs: []string{"environments"},
		TargetDir:       filepath.Join("target", "configuration"),
		Workers:         1,
	}
}

// Project is a loaded project directory.
type Project struct {
	Dir    string
	Config Config
}

// Load reads dir/roleforge.yaml. A missing file yields the defaults.
func Load(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Join(abs, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("project: read %s: %w", FileName, err)
	default:
		if err := decodeStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("project: %s: %w", FileName, err)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Project{Dir: abs, Config: cfg}, nil
}

// Path resolves p against the project directory.
func (p *Project) Path(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

func (p *Project) paths(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = p.Path(s)
	}
	return out
}

// TemplateRoots returns the template directories in lookup order.
func (p *Project) TemplateRoots() []string { return p.paths(p.Config.TemplateDirs) }

// TargetDir returns the output directory.
func (p *Project) TargetDir() string { return p.Path(p.Config.TargetDir) }

// ManifestPath returns the manifest database path, empty when disabled.
func (p *Project) ManifestPath() string { return p.Path(p.Config.Manifest) }

// Roles loads every role definition. The role name is the file name without
// extension.
func (p *Project) Roles() (role.MapRegistry, error) {
	reg := role.MapRegistry{}
	for _, dir := range p.paths(p.Config.RoleDirs) {
		files, err := yamlFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			name := stem(path)
			if _, ok := reg[name]; ok {
				return nil, fmt.Errorf("project: %w: %s (%s)", ErrDuplicateRole, name, path)
			}
			var r api.Role
			if err := decodeFile(path, &r); err != nil {
				return nil, err
			}
			reg[name] = &r
		}
	}
	return reg, nil
}

// Environments loads every environment definition, sorted by name.
func (p *Project) Environments() ([]*api.Environment, error) {
	var envs []*api.Environment
	seen := map[string]string{}
	for _, dir := range p.paths(p.Config.EnvironmentDirs) {
		files, err := yamlFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			name := stem(path)
			if prev, ok := seen[name]; ok {
				return nil, fmt.Errorf("project: %w: %s (%s, %s)", ErrDuplicateEnvironment, name, prev, path)
			}
			seen[name] = path
			var env api.Environment
			if err := decodeFile(path, &env); err != nil {
				return nil, err
			}
			env.Name = name
			envs = append(envs, &env)
		}
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

// SelectEnvironments returns the named environments, or all when names is
// empty.
func (p *Project) SelectEnvironments(names ...string) ([]*api.Environment, error) {
	all, err := p.Environments()
	if err != nil || len(names) == 0 {
		return all, err
	}
	byName := make(map[string]*api.Environment, len(all))
	for _, e := range all {
		byName[e.Name] = e
	}
	out := make([]*api.Environment, 0, len(names))
	for _, n := range names {
		e, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("project: %w: %s", ErrUnknownEnvironment, n)
		}
		out = append(out, e)
	}
	return out, nil
}

// ValueProviders instantiates the configured value providers in order.
func (p *Project) ValueProviders() ([]plugin.ValueProvider, error) {
	var out []plugin.ValueProvider
	for _, pc := range p.Config.ValueProviders {
		vp, err := p.valueProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("project: value provider %q: %w", pc.Name, err)
		}
		out = append(out, vp)
	}
	return out, nil
}

func (p *Project) valueProvider(pc ProviderConfig) (plugin.ValueProvider, error) {
	switch strings.ToLower(pc.Type) {
	case "env":
		return valueprovider.NewEnv(), nil
	case "json":
		return valueprovider.NewJSON(pc.Name, p.Path(pc.Path))
	case "hcl":
		return valueprovider.NewHCL(pc.Name, p.Path(pc.Path))
	default:
		return nil, fmt.Errorf("unknown type %q", pc.Type)
	}
}

// yamlFiles lists the *.yaml and *.yml files of dir sorted by path. A
// missing directory holds no files.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("project: read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isYAMLFile(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("project: read %s: %w", path, err)
	}
	if err := decodeStrict(data, v); err != nil {
		return fmt.Errorf("project: %s: %w", path, err)
	}
	return nil
}

// decodeStrict decodes YAML rejecting unknown keys. Empty input leaves v
// unchanged.
func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
