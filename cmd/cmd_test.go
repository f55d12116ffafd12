package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeProjectFile(t, dir, "roleforge.yaml", `
version: 1.0.0
manifest: target/manifest.db
exportModel: true
`)
	writeProjectFile(t, dir, "roles/base.yaml", `
config:
  port: 8080
files:
  - file: app.yaml
    template: app.yaml.tmpl
`)
	writeProjectFile(t, dir, "roles/service.yaml", `
inherits:
  - role: base
config:
  name: svc
files:
  - template: service.json.tmpl
`)
	writeProjectFile(t, dir, "templates/base/app.yaml.tmpl", "port: {{ .port }}\n")
	writeProjectFile(t, dir, "templates/service/service.json.tmpl", `{"name": "{{ .name }}", "port": {{ .port }}}`+"\n")
	writeProjectFile(t, dir, "environments/dev.yaml", `
nodes:
  - node: host1
    roles:
      - role: service
`)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	dir := testProject(t)
	out, err := run(t, "generate", "--project", dir, "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "dev: 1 nodes, 2 files")

	node := filepath.Join(dir, "target", "configuration", "dev", "host1")
	app, err := os.ReadFile(filepath.Join(node, "app.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(app), "This file is AUTO-GENERATED by roleforge.")
	assert.Contains(t, string(app), "port: 8080\n")
	assert.FileExists(t, filepath.Join(node, "service.json"))
	assert.FileExists(t, filepath.Join(node, "model.yaml"))
	assert.FileExists(t, filepath.Join(dir, "target", "manifest.db"))

	// a second run compares against the recorded manifest.
	_, err = run(t, "generate", "dev", "--project", dir, "--log-level", "warn")
	require.NoError(t, err)
}

func TestGenerateCommand_UnknownEnvironment(t *testing.T) {
	dir := testProject(t)
	_, err := run(t, "generate", "prod", "--project", dir, "--log-level", "warn")
	assert.ErrorContains(t, err, "prod")
}

func TestRoleCommands(t *testing.T) {
	dir := testProject(t)

	out, err := run(t, "role", "list", "--project", dir)
	require.NoError(t, err)
	assert.Equal(t, "base\nservice\n", out)

	out, err = run(t, "role", "resolve", "service", "--project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "- base")
	assert.Contains(t, out, "- service")
	assert.Contains(t, out, "template: service.json.tmpl")

	_, err = run(t, "role", "resolve", "missing", "--project", dir)
	assert.Error(t, err)
}
