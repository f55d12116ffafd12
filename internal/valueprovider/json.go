package valueprovider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// JSON resolves variables from a JSON document. Names starting with '$'
// are JSONPath expressions; other names are dotted member paths.
type JSON struct {
	name string
	data any
}

// NewJSON parses the JSON file at path.
func NewJSON(name, path string) (*JSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewJSONFromBytes(name, b)
}

// NewJSONFromBytes parses an in-memory JSON document.
func NewJSONFromBytes(name string, b []byte) (*JSON, error) {
	data, err := oj.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse json for value provider %s: %w", name, err)
	}
	return &JSON{name: name, data: data}, nil
}

func (j *JSON) Name() string { return j.name }

func (j *JSON) Resolve(_ context.Context, name string) (any, bool, error) {
	expr := name
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + name
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, false, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	results := x.Get(j.data)
	switch len(results) {
	case 0:
		return nil, false, nil
	case 1:
		return normalize(results[0]), true, nil
	default:
		out := make([]any, len(results))
		for i, r := range results {
			out[i] = normalize(r)
		}
		return out, true, nil
	}
}

// normalize converts the int64 numbers produced by ojg to int where they
// fit, matching what the YAML loader yields for config values.
func normalize(v any) any {
	switch t := v.(type) {
	case int64:
		if int64(int(t)) == t {
			return int(t)
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
