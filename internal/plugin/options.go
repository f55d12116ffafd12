package plugin

import (
	"github.com/spf13/cast"
)

// Options are the per-file settings passed to validators and
// post-processors, as configured on the role file.
type Options map[string]any

// String returns the option as text, or def when unset.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	return cast.ToString(v)
}

// Bool returns the option as a bool, or def when unset or unparsable.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Int returns the option as an int, or def when unset or unparsable.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}
