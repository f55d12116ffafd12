package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/roleforge/internal/variable"
)

// ModelFile is the name of the per-node model export.
const ModelFile = "model.yaml"

// NodeModel is the exported description of a generated node.
type NodeModel struct {
	Environment string      `yaml:"environment"`
	Node        string      `yaml:"node"`
	Version     string      `yaml:"version,omitempty"`
	Roles       []RoleModel `yaml:"roles"`
}

type RoleModel struct {
	Role           string         `yaml:"role"`
	Variants       []string       `yaml:"variants,omitempty"`
	InheritedRoles []string       `yaml:"inheritedRoles,omitempty"`
	Config         map[string]any `yaml:"config,omitempty"`
	Files          []FileModel    `yaml:"files,omitempty"`
}

type FileModel struct {
	// Path is relative to the node directory, slash separated.
	Path           string         `yaml:"path"`
	Template       string         `yaml:"template,omitempty"`
	URL            string         `yaml:"url,omitempty"`
	Dependencies   []string       `yaml:"dependencies,omitempty"`
	Tenant         string         `yaml:"tenant,omitempty"`
	PostProcessors []string       `yaml:"postProcessors,omitempty"`
	ModelOptions   map[string]any `yaml:"modelOptions,omitempty"`
}

// BuildModel converts a node result to its exported model. Every file
// produced for a role file, including post-processor outputs, is listed.
func BuildModel(env, version string, node *NodeResult) (*NodeModel, error) {
	m := &NodeModel{Environment: env, Node: node.Node, Version: version}
	for _, r := range node.Roles {
		rm := RoleModel{
			Role:     r.Role,
			Variants: r.Variants,
			Config:   variable.DeescapeMap(r.Config),
		}
		if len(r.Chain) > 1 {
			rm.InheritedRoles = r.Chain[:len(r.Chain)-1]
		}
		for _, f := range r.Files {
			for _, gen := range f.Generated {
				rel, err := filepath.Rel(node.Dir, gen.File.Path)
				if err != nil {
					return nil, err
				}
				rm.Files = append(rm.Files, FileModel{
					Path:           filepath.ToSlash(rel),
					Template:       f.Template,
					URL:            f.URL,
					Dependencies:   f.URLs,
					Tenant:         f.Tenant,
					PostProcessors: gen.Plugins,
					ModelOptions:   f.ModelOptions,
				})
			}
		}
		m.Roles = append(m.Roles, rm)
	}
	return m, nil
}

// ExportModel writes the model of node to dir/model.yaml.
func ExportModel(dir, env, version string, node *NodeResult) error {
	m, err := BuildModel(env, version, node)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model of node %s: %w", node.Node, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, ModelFile)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
