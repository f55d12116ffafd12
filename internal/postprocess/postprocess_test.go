package postprocess

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
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

func paths(files []*plugin.FileContext) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Base(f.Path)
	}
	return out
}

func TestGofmt_FormatsGo(t *testing.T) {
	f := fileWith(t, "main.go", "package main\n\nfunc A()  {\nreturn\n}\n")
	out, err := Gofmt().Apply(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, paths(out))

	got, err := f.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc A() {\n\treturn\n}\n", got)
}

func TestGofmt_InvalidGo(t *testing.T) {
	f := fileWith(t, "main.go", "func broken {{{")
	out, err := Gofmt().Apply(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	got, _ := f.ReadText()
	assert.Equal(t, "func broken {{{", got, "unparseable Go is left unchanged")

	_, err = Gofmt().Apply(context.Background(), f, plugin.Options{"strict": true})
	assert.Error(t, err)
}

func TestJSONC_ReplacesSource(t *testing.T) {
	f := fileWith(t, "app.jsonc", "{\n  // comment\n  \"a\": 1,\n}\n")
	require.True(t, JSONC().Accepts(f))

	out, err := JSONC().Apply(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.json"}, paths(out))
	assert.False(t, f.Exists())

	b, err := out[0].ReadBytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(b))
}

func TestMarkdown_FanOut(t *testing.T) {
	f := fileWith(t, "README.md", "# Title\n\nSome *text*.\n")
	out, err := Markdown().Apply(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "README.html"}, paths(out))

	html, err := out[1].ReadText()
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<em>text</em>")
}

func TestMarkdown_DropSourceAndWrapPage(t *testing.T) {
	f := fileWith(t, "doc.md", "hello\n")
	out, err := Markdown().Apply(context.Background(), f, plugin.Options{"keepSource": false, "title": "Doc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.html"}, paths(out))
	assert.False(t, f.Exists())

	html, _ := out[0].ReadText()
	assert.Contains(t, html, "<title>Doc</title>")
	assert.Contains(t, html, "<p>hello</p>")
}

func TestCompress_Zstd(t *testing.T) {
	content := bytes.Repeat([]byte("config line\n"), 100)
	f := fileWith(t, "big.conf", string(content))

	out, err := Compress().Apply(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"big.conf.zst"}, paths(out))
	assert.False(t, f.Exists())

	compressed, err := out[0].ReadBytes()
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	assert.Equal(t, content, plain)
}

func TestCompress_LZ4KeepSource(t *testing.T) {
	f := fileWith(t, "a.txt", "lz4 content")
	out, err := Compress().Apply(context.Background(), f, plugin.Options{"format": "lz4", "keepSource": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "a.txt.lz4"}, paths(out))
	assert.True(t, f.Exists())

	compressed, err := out[1].ReadBytes()
	require.NoError(t, err)
	plain, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	require.NoError(t, err)
	assert.Equal(t, "lz4 content", string(plain))
}

func TestCompress_Rejects(t *testing.T) {
	assert.False(t, Compress().Accepts(plugin.NewFileContext("a.zst")))
	f := fileWith(t, "a.txt", "x")
	_, err := Compress().Apply(context.Background(), f, plugin.Options{"format": "rar"})
	assert.Error(t, err)
}
