package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/project"
	"github.com/agentic-research/roleforge/internal/role"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Inspect role definitions",
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the roles of the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := project.Load(projectDir)
		if err != nil {
			return err
		}
		roles, err := p.Roles()
		if err != nil {
			return err
		}
		for _, name := range roles.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

// resolvedRole is the printed form of a resolved chain.
type resolvedRole struct {
	Role     string            `yaml:"role"`
	Chain    []string          `yaml:"chain"`
	Config   map[string]any    `yaml:"config,omitempty"`
	Variants []api.RoleVariant `yaml:"variants,omitempty"`
	Files    []resolvedFile    `yaml:"files,omitempty"`
}

type resolvedFile struct {
	Role        string       `yaml:"role"`
	TemplateDir string       `yaml:"templateDir"`
	File        api.RoleFile `yaml:",inline"`
}

var roleResolveCmd = &cobra.Command{
	Use:   "resolve <role>",
	Short: "Print a role merged with everything it inherits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := project.Load(projectDir)
		if err != nil {
			return err
		}
		roles, err := p.Roles()
		if err != nil {
			return err
		}
		chain, err := role.Resolve(args[0], "command line", roles)
		if err != nil {
			return err
		}

		out := resolvedRole{
			Role:     args[0],
			Chain:    chain.Names(),
			Config:   chain.Config(),
			Variants: chain.Variants(),
		}
		for _, f := range chain.Files() {
			out.Files = append(out.Files, resolvedFile{Role: f.Role, TemplateDir: f.TemplateDir, File: f.File})
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	roleCmd.AddCommand(roleListCmd, roleResolveCmd)
	rootCmd.AddCommand(roleCmd)
}
