// Package variable resolves ${name} placeholders across a tree of nested
// configuration scopes.
package variable

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Provider supplies values that are not defined in any scope. Resolve
// returns ok=false when the provider does not know the name.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, name string) (value any, ok bool, err error)
}

// Resolver substitutes placeholders. It is safe for concurrent use as long
// as the providers are.
type Resolver struct {
	providers []Provider
}

// NewResolver returns a Resolver consulting providers in the given order
// after all scope bindings.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

func (r *Resolver) provider(name string) Provider {
	for _, p := range r.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// ResolveTree resolves the config of every scope below root in place.
// Parents are resolved before their children so a child sees resolved
// ancestor bindings.
func (r *Resolver) ResolveTree(ctx context.Context, root Scope) error {
	return Walk(root, func(s Scope, ancestors []Scope) error {
		cfg := s.Config()
		if cfg == nil {
			return nil
		}
		bindings := make([]map[string]any, len(ancestors))
		for i, a := range ancestors {
			bindings[i] = a.Config()
		}
		out, err := r.resolveMap(ctx, scopePath(s, ancestors), cfg, bindings)
		if err != nil {
			return err
		}
		s.SetConfig(out)
		return nil
	})
}

// ResolveMap resolves m against its own entries, then the already resolved
// ancestor maps (nearest first), then the providers. m is not modified.
func (r *Resolver) ResolveMap(ctx context.Context, m map[string]any, ancestors ...map[string]any) (map[string]any, error) {
	return r.resolveMap(ctx, "", m, ancestors)
}

// ResolveValue resolves a single value against already resolved bindings
// (nearest first) and the providers.
func (r *Resolver) ResolveValue(ctx context.Context, v any, bindings ...map[string]any) (any, error) {
	rs := r.newResolution(ctx, "", nil, bindings)
	return rs.value(v)
}

// ResolveString is ResolveValue for strings, always returning text.
func (r *Resolver) ResolveString(ctx context.Context, s string, bindings ...map[string]any) (string, error) {
	v, err := r.ResolveValue(ctx, s, bindings...)
	if err != nil {
		return "", err
	}
	return Stringify(v), nil
}

func (r *Resolver) resolveMap(ctx context.Context, scope string, m map[string]any, ancestors []map[string]any) (map[string]any, error) {
	rs := r.newResolution(ctx, scope, m, ancestors)
	out := make(map[string]any, len(m))
	for _, k := range sortedKeys(m) {
		v, err := rs.key(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (r *Resolver) newResolution(ctx context.Context, scope string, own map[string]any, ancestors []map[string]any) *resolution {
	return &resolution{
		r:         r,
		ctx:       ctx,
		scope:     scope,
		own:       own,
		ancestors: ancestors,
		resolved:  map[string]any{},
	}
}

// resolution holds the state of resolving one scope. Own keys are resolved
// lazily and memoized; stack holds the keys currently being resolved.
type resolution struct {
	r         *Resolver
	ctx       context.Context
	scope     string
	own       map[string]any
	ancestors []map[string]any
	resolved  map[string]any
	stack     []string
}

func (rs *resolution) key(k string) (any, error) {
	if v, ok := rs.resolved[k]; ok {
		return v, nil
	}
	if slices.Contains(rs.stack, k) {
		chain := append(slices.Clone(rs.stack), k)
		return nil, &Error{Scope: rs.scope, Variable: k, Chain: chain, Err: ErrCyclicVariableReference}
	}
	rs.stack = append(rs.stack, k)
	v, err := rs.value(rs.own[k])
	rs.stack = rs.stack[:len(rs.stack)-1]
	if err != nil {
		return nil, err
	}
	rs.resolved[k] = v
	return v, nil
}

func (rs *resolution) value(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return rs.str(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range sortedKeys(t) {
			rv, err := rs.value(t[k])
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case map[any]any:
		conv := make(map[string]any, len(t))
		for k, e := range t {
			conv[fmt.Sprint(k)] = e
		}
		return rs.value(conv)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := rs.value(e)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (rs *resolution) str(s string) (any, error) {
	toks := parse(s)
	if len(toks) == 1 && toks[0].ref != nil {
		return rs.lookup(toks[0].ref)
	}
	var b strings.Builder
	for _, t := range toks {
		if t.ref == nil {
			b.WriteString(t.text)
			continue
		}
		v, err := rs.lookup(t.ref)
		if err != nil {
			return nil, err
		}
		b.WriteString(Stringify(v))
	}
	return b.String(), nil
}

func (rs *resolution) lookup(ref *reference) (any, error) {
	if ref.Name == "" {
		return nil, &Error{Scope: rs.scope, Variable: ref.Provider, Err: ErrMalformedPlaceholder}
	}
	if ref.Provider != "" {
		p := rs.r.provider(ref.Provider)
		if p == nil {
			return nil, &Error{Scope: rs.scope, Variable: ref.Provider + "::" + ref.Name, Err: fmt.Errorf("%w: no value provider %q", ErrUnknownVariable, ref.Provider)}
		}
		v, ok, err := p.Resolve(rs.ctx, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("value provider %s: %w", ref.Provider, err)
		}
		if ok {
			return rs.provided(ref.Provider+"::"+ref.Name, v)
		}
		return rs.fallback(ref)
	}

	if v, ok, err := rs.fromOwn(ref.Name); err != nil || ok {
		return v, err
	}
	for _, m := range rs.ancestors {
		if v, ok := lookupPath(m, ref.Name); ok {
			return v, nil
		}
	}
	for _, p := range rs.r.providers {
		v, ok, err := p.Resolve(rs.ctx, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("value provider %s: %w", p.Name(), err)
		}
		if ok {
			return rs.provided(ref.Name, v)
		}
	}
	return rs.fallback(ref)
}

// provided resolves placeholders inside a value returned by a provider.
// name stays on the stack meanwhile so a value referring back to itself is
// reported as a cycle.
func (rs *resolution) provided(name string, v any) (any, error) {
	if slices.Contains(rs.stack, name) {
		chain := append(slices.Clone(rs.stack), name)
		return nil, &Error{Scope: rs.scope, Variable: name, Chain: chain, Err: ErrCyclicVariableReference}
	}
	rs.stack = append(rs.stack, name)
	out, err := rs.value(v)
	rs.stack = rs.stack[:len(rs.stack)-1]
	return out, err
}

func (rs *resolution) fallback(ref *reference) (any, error) {
	if ref.HasDefault {
		return ref.Default, nil
	}
	name := ref.Name
	if ref.Provider != "" {
		name = ref.Provider + "::" + name
	}
	return nil, &Error{Scope: rs.scope, Variable: name, Err: ErrUnknownVariable}
}

// fromOwn resolves name against the scope's own entries. A dotted name
// matches a literal key first, then walks nested maps from its first
// segment.
func (rs *resolution) fromOwn(name string) (any, bool, error) {
	if rs.own == nil {
		return nil, false, nil
	}
	if _, ok := rs.own[name]; ok {
		v, err := rs.key(name)
		return v, err == nil, err
	}
	head, rest, dotted := strings.Cut(name, ".")
	if !dotted {
		return nil, false, nil
	}
	if _, ok := rs.own[head]; !ok {
		return nil, false, nil
	}
	v, err := rs.key(head)
	if err != nil {
		return nil, false, err
	}
	got, ok := lookupPath(map[string]any{head: v}, head+"."+rest)
	return got, ok, nil
}

// lookupPath finds name in m, first as a literal key, then as a dotted path
// through nested maps.
func lookupPath(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	var cur any = m
	for _, seg := range strings.Split(name, ".") {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[any]any:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Stringify renders a resolved value for embedding into a larger string.
// Lists are joined with commas and maps are rendered as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func scopePath(s Scope, ancestors []Scope) string {
	parts := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		if n := ancestors[i].Name(); n != "" {
			parts = append(parts, n)
		}
	}
	parts = append(parts, s.Name())
	return strings.Join(parts, "/")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
