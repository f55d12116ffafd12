package api

// Environment composes roles into nodes. Its config is the outermost
// variable scope.
type Environment struct {
	// Name is derived from the file name when loaded from disk.
	Name string `yaml:"-" json:"name,omitempty"`

	Config       map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	RoleConfig   []RoleConfig   `yaml:"roleConfig,omitempty" json:"roleConfig,omitempty"`
	Nodes        []Node         `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	Tenants      []Tenant       `yaml:"tenants,omitempty" json:"tenants,omitempty"`
	Dependencies []string       `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// RoleConfig holds environment-wide config for one role.
type RoleConfig struct {
	Role   string         `yaml:"role" json:"role"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Node is a target host. Generated files for a node land in
// <target>/<environment>/<node>.
type Node struct {
	Node   string         `yaml:"node" json:"node"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Roles  []NodeRole     `yaml:"roles,omitempty" json:"roles,omitempty"`
}

// NodeRole assigns a role to a node, optionally narrowed to variants.
type NodeRole struct {
	Role     string         `yaml:"role" json:"role"`
	Variants []string       `yaml:"variants,omitempty" json:"variants,omitempty"`
	Config   map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Tenant is a named config set used by files with multiply: tenant.
type Tenant struct {
	Tenant string         `yaml:"tenant" json:"tenant"`
	Roles  []string       `yaml:"roles,omitempty" json:"roles,omitempty"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// ConfigForRole returns the environment role config for role, or nil.
func (e *Environment) ConfigForRole(role string) map[string]any {
	for _, rc := range e.RoleConfig {
		if rc.Role == role {
			return rc.Config
		}
	}
	return nil
}

// TenantsForRole returns the tenants that apply to role. Tenants without a
// role list apply to every role.
func (e *Environment) TenantsForRole(role string) []Tenant {
	var out []Tenant
	for _, t := range e.Tenants {
		if len(t.Roles) == 0 {
			out = append(out, t)
			continue
		}
		for _, r := range t.Roles {
			if r == role {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
