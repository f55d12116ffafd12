package generator

import (
	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/role"
	"github.com/agentic-research/roleforge/internal/variable"
)

// environmentScope is the root of the variable scope tree of one
// environment: environment -> nodes -> node roles. Environment and node
// config is merged into every node role, so environment and node scopes hold
// no config and only name the path reported in resolution errors.
type environmentScope struct {
	env   *api.Environment
	nodes []*nodeScope
}

type nodeScope struct {
	node  *api.Node
	roles []*nodeRoleScope
}

// nodeRoleScope carries the fully merged config of one role on one node.
type nodeRoleScope struct {
	node     string
	nodeRole api.NodeRole
	chain    *role.Chain
	config   map[string]any
}

var (
	_ variable.Scope = (*environmentScope)(nil)
	_ variable.Scope = (*nodeScope)(nil)
	_ variable.Scope = (*nodeRoleScope)(nil)
)

func (s *environmentScope) Name() string { return s.env.Name }

func (s *environmentScope) Config() map[string]any { return nil }

func (s *environmentScope) SetConfig(map[string]any) {}

func (s *environmentScope) Children() []variable.Scope {
	out := make([]variable.Scope, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n
	}
	return out
}

func (s *nodeScope) Name() string { return s.node.Node }

func (s *nodeScope) Config() map[string]any { return nil }

func (s *nodeScope) SetConfig(map[string]any) {}

func (s *nodeScope) Children() []variable.Scope {
	out := make([]variable.Scope, len(s.roles))
	for i, r := range s.roles {
		out[i] = r
	}
	return out
}

func (s *nodeRoleScope) Name() string { return s.nodeRole.Role }

func (s *nodeRoleScope) Config() map[string]any { return s.config }

func (s *nodeRoleScope) SetConfig(c map[string]any) { s.config = c }

func (s *nodeRoleScope) Children() []variable.Scope { return nil }
