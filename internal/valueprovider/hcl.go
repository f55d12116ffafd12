package valueprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// HCL resolves variables from a tfvars-style HCL file of top-level
// attributes. Dotted names descend into object values.
type HCL struct {
	name string
	vars map[string]any
}

// NewHCL parses the variables file at path.
func NewHCL(name, path string) (*HCL, error) {
	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", path, diags)
	}
	return newHCL(name, f.Body)
}

// NewHCLFromBytes parses an in-memory variables file.
func NewHCLFromBytes(name string, src []byte, filename string) (*HCL, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}
	return newHCL(name, f.Body)
}

func newHCL(name string, body hcl.Body) (*HCL, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("value provider %s: %w", name, diags)
	}
	vars := make(map[string]any, len(attrs))
	for key, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("value provider %s: attribute %s: %w", name, key, diags)
		}
		b, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return nil, fmt.Errorf("value provider %s: attribute %s: %w", name, key, err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("value provider %s: attribute %s: %w", name, key, err)
		}
		vars[key] = fromJSONNumbers(v)
	}
	return &HCL{name: name, vars: vars}, nil
}

func (h *HCL) Name() string { return h.name }

func (h *HCL) Resolve(_ context.Context, name string) (any, bool, error) {
	if v, ok := h.vars[name]; ok {
		return v, true, nil
	}
	var cur any = h.vars
	for _, seg := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if cur, ok = m[seg]; !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

// fromJSONNumbers turns whole float64 numbers into ints.
func fromJSONNumbers(v any) any {
	switch t := v.(type) {
	case float64:
		if t == float64(int(t)) {
			return int(t)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = fromJSONNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = fromJSONNumbers(e)
		}
		return t
	default:
		return v
	}
}
