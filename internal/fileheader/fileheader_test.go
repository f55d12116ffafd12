package fileheader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/roleforge/api"
	"github.com/agentic-research/roleforge/internal/plugin"
)

func writeFile(t *testing.T, name, content string) *plugin.FileContext {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return plugin.NewFileContext(path)
}

func read(t *testing.T, f *plugin.FileContext) string {
	t.Helper()
	s, err := f.ReadText()
	require.NoError(t, err)
	return s
}

func TestConf_Apply(t *testing.T) {
	f := writeFile(t, "app.properties", "key=value\n")
	require.NoError(t, Conf().Apply(context.Background(), f, []string{"****", "", "  hello", ""}))
	assert.Equal(t, "# ****\n#\n#   hello\n#\nkey=value\n", read(t, f))
}

func TestConf_KeepsShebangFirst(t *testing.T) {
	f := writeFile(t, "run.sh", "#!/bin/sh\necho hi\n")
	require.NoError(t, Conf().Apply(context.Background(), f, []string{"x"}))
	assert.Equal(t, "#!/bin/sh\n# x\necho hi\n", read(t, f))
}

func TestXML_AfterDeclaration(t *testing.T) {
	f := writeFile(t, "a.xml", "<?xml version=\"1.0\"?>\n<root/>\n")
	require.NoError(t, XML().Apply(context.Background(), f, []string{"x"}))
	assert.Equal(t, "<?xml version=\"1.0\"?>\n<!--\nx\n-->\n<root/>\n", read(t, f))
}

func TestXML_WithoutDeclaration(t *testing.T) {
	f := writeFile(t, "a.xml", "<root/>")
	require.NoError(t, XML().Apply(context.Background(), f, []string{"x"}))
	assert.Equal(t, "<!--\nx\n-->\n<root/>", read(t, f))
}

func TestCStyle_WindowsLineEndings(t *testing.T) {
	f := writeFile(t, "a.js", "var a = 1;\r\n")
	f.LineEndings = api.LineEndingsWindows
	require.NoError(t, CStyle().Apply(context.Background(), f, []string{"x"}))
	assert.Equal(t, "/*\r\nx\r\n*/\r\nvar a = 1;\r\n", read(t, f))
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		header plugin.FileHeader
		file   string
		want   bool
	}{
		{Conf(), "a.yaml", true},
		{Conf(), "a.xml", false},
		{XML(), "a.XML", true},
		{CStyle(), "a.jsonc", true},
		{CStyle(), "a.json", false},
		{None(), "anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.header.Name()+"/"+tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.header.Accepts(plugin.NewFileContext(tt.file)))
		})
	}
}

func TestNone_LeavesFileAlone(t *testing.T) {
	f := writeFile(t, "a.txt", "body")
	assert.Equal(t, plugin.ApplyNever, None().ImplicitApply(f))
	require.NoError(t, None().Apply(context.Background(), f, []string{"x"}))
	assert.Equal(t, "body", read(t, f))
}
