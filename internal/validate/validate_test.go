package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/roleforge/internal/plugin"
)

func fileWith(t *testing.T, name, content string) *plugin.FileContext {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return plugin.NewFileContext(path)
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator plugin.Validator
		file      string
		content   string
		wantErr   bool
	}{
		{"json ok", JSON(), "a.json", `{"a": [1, 2]}`, false},
		{"json broken", JSON(), "a.json", `{"a": [1, 2}`, true},
		{"yaml ok", YAML(), "a.yaml", "a: 1\n---\nb: [1, 2]\n", false},
		{"yaml broken", YAML(), "a.yml", "a: [1, 2\n", true},
		{"hcl ok", HCL(), "main.tf", "resource \"x\" \"y\" {\n  a = 1\n}\n", false},
		{"hcl broken", HCL(), "main.tf", "resource \"x\" {\n  a = \n", true},
		{"xml ok", XML(), "a.xml", `<?xml version="1.0"?><root><a/></root>`, false},
		{"xml broken", XML(), "a.xml", `<root><a></root>`, true},
		{"go ok", Syntax(), "main.go", "package main\n\nfunc hello() string {\n\treturn \"world\"\n}\n", false},
		{"go broken", Syntax(), "main.go", "package main\n\nfunc hello() string {\n\treturn \"world\"\n", true},
		{"python ok", Syntax(), "a.py", "def hello():\n    return \"world\"\n", false},
		{"python broken", Syntax(), "a.py", "def hello(\n    return \"world\"\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fileWith(t, tt.file, tt.content)
			require.True(t, tt.validator.Accepts(f))
			err := tt.validator.Validate(context.Background(), f, nil)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.validator.Name(), ve.Validator)
			assert.Equal(t, f.Path, ve.FilePath)
		})
	}
}

func TestValidators_Accepts(t *testing.T) {
	assert.False(t, JSON().Accepts(plugin.NewFileContext("a.yaml")))
	assert.True(t, YAML().Accepts(plugin.NewFileContext("a.YML")))
	assert.True(t, Syntax().Accepts(plugin.NewFileContext("lib.rs")))
	assert.False(t, Syntax().Accepts(plugin.NewFileContext("notes.txt")))
	assert.False(t, None().Accepts(plugin.NewFileContext("a.json")))
}

func TestXML_ReportsLine(t *testing.T) {
	f := fileWith(t, "a.xml", "<root>\n<a>\n</root>\n")
	err := XML().Validate(context.Background(), f, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, uint32(2), ve.Line)
}

func TestCheckSyntax_UnknownExtensionPassThrough(t *testing.T) {
	err := CheckSyntax(context.Background(), []byte(`this is not valid code in any language {{{`), "test.txt")
	assert.NoError(t, err)
}

func TestCheckSyntax_EmptyContent(t *testing.T) {
	assert.NoError(t, CheckSyntax(context.Background(), []byte{}, "test.go"))
}

func TestCheckSyntax_ReportsEveryErrorNode(t *testing.T) {
	src := []byte(`package main

func hello() {
	x :=
}

func world() {
	y :=
}
`)
	err := CheckSyntax(context.Background(), src, "test.go")
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "errors are joined")
	require.NotEmpty(t, joined.Unwrap())
	for _, e := range joined.Unwrap() {
		var ve *ValidationError
		require.ErrorAs(t, e, &ve)
		assert.Equal(t, "test.go", ve.FilePath)
		assert.Contains(t, err.Error(), ve.Error())
	}
}

func TestCheckSyntax_ValidGo(t *testing.T) {
	assert.NoError(t, CheckSyntax(context.Background(), []byte("package main\n\nfunc hello() {}\n"), "test.go"))
}
