package role

import "fmt"

// MergeConfig returns a new map holding base overlaid with override.
// Nested maps are merged recursively; for any other value type the
// override wins. Neither argument is modified.
func MergeConfig(base, override map[string]any) map[string]any {
	out := CopyConfig(base)
	if out == nil {
		out = make(map[string]any, len(override))
	}
	for k, v := range override {
		if ov, ok := asMap(v); ok {
			if bv, ok := asMap(out[k]); ok {
				out[k] = MergeConfig(bv, ov)
				continue
			}
		}
		out[k] = copyValue(v)
	}
	return out
}

// CopyConfig deep-copies a config map. Returns nil for nil input.
func CopyConfig(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	if m, ok := asMap(v); ok {
		return CopyConfig(m)
	}
	if l, ok := v.([]any); ok {
		out := make([]any, len(l))
		for i, e := range l {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}

// asMap normalizes the map shapes produced by the YAML and JSON decoders.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[fmt.Sprint(k)] = e
		}
		return out, true
	default:
		return nil, false
	}
}
