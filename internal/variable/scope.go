package variable

// Scope is a node of the configuration tree. Scopes that carry no config of
// their own return nil from Config and do not add a lookup level.
type Scope interface {
	Name() string
	Config() map[string]any
	SetConfig(map[string]any)
	Children() []Scope
}

// Visitor is called once per scope with the ancestors that carry config,
// nearest first.
type Visitor func(s Scope, ancestors []Scope) error

// Walk visits root and its descendants depth-first, parents before children,
// children in the order returned by Children. The first visitor error stops
// the walk.
func Walk(root Scope, visit Visitor) error {
	return walk(root, nil, visit)
}

func walk(s Scope, ancestors []Scope, visit Visitor) error {
	if err := visit(s, ancestors); err != nil {
		return err
	}
	next := ancestors
	if s.Config() != nil {
		next = make([]Scope, 0, len(ancestors)+1)
		next = append(next, s)
		next = append(next, ancestors...)
	}
	for _, c := range s.Children() {
		if err := walk(c, next, visit); err != nil {
			return err
		}
	}
	return nil
}

// MapScope is a Scope over a plain map, useful for ad-hoc trees.
type MapScope struct {
	ScopeName string
	Values    map[string]any
	Nested    []Scope
}

func (m *MapScope) Name() string { return m.ScopeName }

func (m *MapScope) Config() map[string]any { return m.Values }

func (m *MapScope) SetConfig(c map[string]any) { m.Values = c }

func (m *MapScope) Children() []Scope { return m.Nested }
