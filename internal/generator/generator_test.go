package generator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/plugin"
	"github.com/agentic-research/roleforge/internal/render"
	"github.com/agentic-research/roleforge/internal/role"
	"github.com/agentic-research/roleforge/internal/variable"
)

func writeTemplate(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testRoles() role.MapRegistry {
	return role.MapRegistry{
		"base": {
			TemplateDir: "base",
			Config:      map[string]any{"port": 80, "greeting": "hello"},
			Files: []api.RoleFile{
				{File: "base.txt", Template: "base.txt.tmpl"},
			},
		},
		"web": {
			TemplateDir: "web",
			Inherits:    []api.RoleInherit{{Role: "base"}},
			Variants: []api.RoleVariant{
				{Variant: "ssl", Config: map[string]any{"port": 443}},
				{Variant: "plain"},
			},
			Config: map[string]any{"url": "http://${host}:${port}/"},
			Files: []api.RoleFile{
				{Template: "web.conf.tmpl"},
				{File: "ssl.txt", Template: "ssl.txt.tmpl", Variants: []string{"ssl"}},
				{File: "debug.txt", Template: "ssl.txt.tmpl", Condition: "${debug:false}"},
				{File: "${roleforge.tenant}.txt", Dir: "tenants", Template: "tenant.txt.tmpl", Multiply: api.MultiplyTenant},
			},
		},
	}
}

func testEnvironment() *api.Environment {
	return &api.Environment{
		Name:         "prod",
		Config:       map[string]any{"host": "example.org"},
		RoleConfig:   []api.RoleConfig{{Role: "web", Config: map[string]any{"greeting": "hi"}}},
		Dependencies: []string{"io.example:roles:1.0-20240101.120000-3"},
		Tenants: []api.Tenant{
			{Tenant: "acme", Config: map[string]any{"owner": "Acme"}},
			{Tenant: "globex", Roles: []string{"other"}},
		},
		Nodes: []api.Node{
			{
				Node:   "node1",
				Config: map[string]any{"host": "node1.example.org"},
				Roles:  []api.NodeRole{{Role: "web", Variants: []string{"ssl"}}},
			},
			{
				Node:  "node2",
				Roles: []api.NodeRole{{Role: "web", Config: map[string]any{"debug": true}}},
			},
		},
	}
}

func newTestGenerator(t *testing.T, roles role.Registry, opts Options) *Generator {
	t.Helper()
	templates := t.TempDir()
	writeTemplate(t, templates, "base/base.txt.tmpl", "{{ .greeting }} from {{ .roleforge.node }}")
	writeTemplate(t, templates, "web/web.conf.tmpl", "url={{ .url }}")
	writeTemplate(t, templates, "web/ssl.txt.tmpl", "port={{ .port }}")
	writeTemplate(t, templates, "web/tenant.txt.tmpl", "owner={{ .owner }} tenant={{ .roleforge.tenant }}")

	files := NewFileGenerator(plugin.NewRegistry(), render.New(templates), nil, nil)
	return New(roles, files, variable.NewResolver(), nil, opts)
}

func TestGenerator_Environment(t *testing.T) {
	target := t.TempDir()
	g := newTestGenerator(t, testRoles(), Options{TargetDir: target, Version: "2.0", Workers: 2, ExportModel: true})

	res, err := g.Generate(context.Background(), testEnvironment())
	require.NoError(t, err)
	require.Len(t, res.Nodes, 2)

	node1 := filepath.Join(target, "prod", "node1")
	assert.Equal(t, "hi from node1", read(t, filepath.Join(node1, "base.txt")))
	assert.Equal(t, "url=http://node1.example.org:443/", read(t, filepath.Join(node1, "web.conf")))
	assert.Equal(t, "port=443", read(t, filepath.Join(node1, "ssl.txt")))
	assert.NoFileExists(t, filepath.Join(node1, "debug.txt"))
	assert.Equal(t, "owner=Acme tenant=acme", read(t, filepath.Join(node1, "tenants", "acme.txt")))
	assert.NoFileExists(t, filepath.Join(node1, "tenants", "globex.txt"))

	node2 := filepath.Join(target, "prod", "node2")
	assert.Equal(t, "url=http://example.org:80/", read(t, filepath.Join(node2, "web.conf")))
	assert.NoFileExists(t, filepath.Join(node2, "ssl.txt"))
	assert.Equal(t, "port=80", read(t, filepath.Join(node2, "debug.txt")))

	web := res.Nodes[0].Roles[0]
	assert.Equal(t, []string{"base", "web"}, web.Chain)
	assert.Equal(t, "node1", res.Nodes[0].Node)

	var model NodeModel
	require.NoError(t, yaml.Unmarshal([]byte(read(t, filepath.Join(node1, ModelFile))), &model))
	assert.Equal(t, "prod", model.Environment)
	assert.Equal(t, "2.0", model.Version)
	require.Len(t, model.Roles, 1)
	assert.Equal(t, []string{"base"}, model.Roles[0].InheritedRoles)
	var paths []string
	for _, f := range model.Roles[0].Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"base.txt", "web.conf", "ssl.txt", "tenants/acme.txt"}, paths)
}

func TestGenerator_DeleteBeforeGenerate(t *testing.T) {
	target := t.TempDir()
	stale := filepath.Join(target, "prod", "node1", "stale.txt")
	writeTemplate(t, filepath.Dir(stale), "stale.txt", "old")

	g := newTestGenerator(t, testRoles(), Options{TargetDir: target})
	_, err := g.Generate(context.Background(), testEnvironment())
	require.NoError(t, err)
	assert.FileExists(t, stale)

	g = newTestGenerator(t, testRoles(), Options{TargetDir: target, DeleteBeforeGenerate: true})
	_, err = g.Generate(context.Background(), testEnvironment())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(target, "prod", "node1", "web.conf"))
}

func TestGenerator_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown variant", func(t *testing.T) {
		env := testEnvironment()
		env.Nodes[0].Roles[0].Variants = []string{"nope"}
		_, err := newTestGenerator(t, testRoles(), Options{TargetDir: t.TempDir()}).Generate(ctx, env)
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})

	t.Run("unknown role", func(t *testing.T) {
		env := testEnvironment()
		env.Nodes[1].Roles[0].Role = "nope"
		_, err := newTestGenerator(t, testRoles(), Options{TargetDir: t.TempDir()}).Generate(ctx, env)
		assert.ErrorIs(t, err, role.ErrUnknownRole)
		assert.ErrorContains(t, err, "environment prod, node node2")
	})

	t.Run("unknown variable", func(t *testing.T) {
		env := testEnvironment()
		env.Config = nil
		_, err := newTestGenerator(t, testRoles(), Options{TargetDir: t.TempDir()}).Generate(ctx, env)
		assert.ErrorIs(t, err, variable.ErrUnknownVariable)
		var verr *variable.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "prod/node2/web", verr.Scope)
	})

	t.Run("path escapes node", func(t *testing.T) {
		roles := testRoles()
		roles["web"].Files = append(roles["web"].Files, api.RoleFile{File: "escape.txt", Dir: "../..", Template: "ssl.txt.tmpl"})
		_, err := newTestGenerator(t, roles, Options{TargetDir: t.TempDir()}).Generate(ctx, testEnvironment())
		assert.ErrorIs(t, err, ErrPathEscapesNode)
	})

	t.Run("unknown multiply", func(t *testing.T) {
		roles := testRoles()
		roles["web"].Files = append(roles["web"].Files, api.RoleFile{File: "m.txt", Template: "ssl.txt.tmpl", Multiply: "node"})
		_, err := newTestGenerator(t, roles, Options{TargetDir: t.TempDir()}).Generate(ctx, testEnvironment())
		assert.ErrorIs(t, err, ErrUnknownMultiply)
	})
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, 1, 2.5, "yes", "true", []any{1}} {
		assert.True(t, truthy(v), "%v", v)
	}
	for _, v := range []any{nil, false, 0, "", "false", "0", "no", "off", []any{}} {
		assert.False(t, truthy(v), "%v", v)
	}
}

type dirSources struct{ dir string }

func (s dirSources) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, locator))
}

func (s dirSources) FileName(_ context.Context, locator string) (string, error) {
	return filepath.Base(locator), nil
}

func (s dirSources) FileURLsWithDependencies(_ context.Context, locator string) ([]string, error) {
	return []string{"file:///" + locator, "file:///shared/base.conf"}, nil
}

func TestGenerator_URLDependenciesInModel(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "app.conf"), []byte("key=value\n"), 0o644))
	sources := dirSources{dir: src}

	roles := role.MapRegistry{"svc": {Files: []api.RoleFile{{URL: "app.conf"}}}}
	env := &api.Environment{Name: "dev", Nodes: []api.Node{{Node: "n1", Roles: []api.NodeRole{{Role: "svc"}}}}}

	target := t.TempDir()
	files := NewFileGenerator(plugin.NewRegistry(), render.New(), sources, nil)
	g := New(roles, files, variable.NewResolver(), sources, Options{TargetDir: target, ExportModel: true})

	res, err := g.Generate(context.Background(), env)
	require.NoError(t, err)
	node := filepath.Join(target, "dev", "n1")
	assert.Equal(t, "key=value\n", read(t, filepath.Join(node, "app.conf")))

	want := []string{"file:///app.conf", "file:///shared/base.conf"}
	assert.Equal(t, want, res.Nodes[0].Roles[0].Files[0].URLs)

	var model NodeModel
	require.NoError(t, yaml.Unmarshal([]byte(read(t, filepath.Join(node, ModelFile))), &model))
	require.Len(t, model.Roles[0].Files, 1)
	assert.Equal(t, "app.conf", model.Roles[0].Files[0].Path)
	assert.Equal(t, want, model.Roles[0].Files[0].Dependencies)
}
