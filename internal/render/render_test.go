package render

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/roleforge/api"
)

func writeTemplate(t *testing.T, root, dir, name, body string) {
	t.Helper()
	p := filepath.Join(root, dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestRenderer_SearchesRootsInOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeTemplate(t, second, "web", "a.conf.tmpl", "second {{ .name }}")
	writeTemplate(t, second, "web", "b.conf.tmpl", "only second")
	writeTemplate(t, first, "web", "a.conf.tmpl", "first {{ .name }}")

	r := New(first, second)
	out, err := r.Render("web", "a.conf.tmpl", map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "first x", out)

	out, err = r.Render("web", "b.conf.tmpl", nil)
	require.NoError(t, err)
	assert.Equal(t, "only second", out)

	_, err = r.Render("web", "c.conf.tmpl", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRenderer_Funcs(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "r", "f.tmpl",
		`{{ json .m }}|{{ xml .s }}|{{ default "d" .missing }}|{{ join "," .l }}|{{ first .l }}|{{ upper "a" }}`)

	out, err := New(root).Render("r", "f.tmpl", map[string]any{
		"m": map[string]any{"k": 1},
		"s": "<a & b>",
		"l": []any{"x", "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}|&lt;a &amp; b&gt;|d|x,y|x|A`, out)
}

func TestRenderer_ParseError(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "r", "bad.tmpl", "{{ .a ")
	_, err := New(root).Render("r", "bad.tmpl", nil)
	assert.Error(t, err)
}

func TestRenderer_Concurrent(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "r", "t.tmpl", "{{ .n }}")
	r := New(root)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, err := r.Render("r", "t.tmpl", map[string]any{"n": n})
			assert.NoError(t, err)
			assert.NotEmpty(t, out)
		}(i)
	}
	wg.Wait()
}

func TestLineEndings(t *testing.T) {
	in := "a\r\nb\rc\n"
	norm := NormalizeLineEndings(in)
	assert.Equal(t, "a\nb\nc\n", norm)
	assert.Equal(t, "a\r\nb\r\nc\r\n", ConvertLineEndings(norm, api.LineEndingsWindows))
	assert.Equal(t, "a\rb\rc\r", ConvertLineEndings(norm, api.LineEndingsMacOS))
	assert.Equal(t, norm, ConvertLineEndings(norm, ""))
}
