// Package render executes role templates with text/template.
package render

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

var ErrTemplateNotFound = errors.New("template not found")

var tmplFuncs = template.FuncMap{
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<json error: %v>", err)
		}
		return string(b)
	},
	"first": func(v any) any {
		switch s := v.(type) {
		case []any:
			if len(s) > 0 {
				return s[0]
			}
		}
		return nil
	},
	"xml": func(v any) string {
		var b strings.Builder
		_ = xml.EscapeText(&b, []byte(fmt.Sprint(v)))
		return b.String()
	},
	"default": func(def, v any) any {
		if v == nil {
			return def
		}
		if s, ok := v.(string); ok && s == "" {
			return def
		}
		return v
	},
	"join": func(sep string, v any) string {
		l, ok := v.([]any)
		if !ok {
			return fmt.Sprint(v)
		}
		parts := make([]string, len(l))
		for i, e := range l {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, sep)
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// Renderer looks up templates below a list of root directories, first
// match wins, and caches parsed templates. It is safe for concurrent use.
type Renderer struct {
	roots []string
	cache sync.Map // path -> *template.Template
}

// New returns a renderer searching roots in order.
func New(roots ...string) *Renderer {
	return &Renderer{roots: roots}
}

// Render executes templateDir/name with data.
func (r *Renderer) Render(templateDir, name string, data map[string]any) (string, error) {
	path, err := r.find(templateDir, name)
	if err != nil {
		return "", err
	}
	t, err := r.load(path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	return buf.String(), nil
}

func (r *Renderer) find(templateDir, name string) (string, error) {
	for _, root := range r.roots {
		p := filepath.Join(root, templateDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat template %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, filepath.Join(templateDir, name))
}

func (r *Renderer) load(path string) (*template.Template, error) {
	if t, ok := r.cache.Load(path); ok {
		return t.(*template.Template), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	t, err := template.New(filepath.Base(path)).Funcs(tmplFuncs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	actual, _ := r.cache.LoadOrStore(path, t)
	return actual.(*template.Template), nil
}
