// Package valueprovider provides sources for ${...} variables that are not
// defined in configuration.
package valueprovider

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// Env resolves variables from the process environment. A dotted name like
// db.host also matches DB_HOST.
type Env struct {
	lookup func(string) (string, bool)
}

// NewEnv returns a provider reading os environment variables.
func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

func (e *Env) Name() string { return "env" }

func (e *Env) Resolve(_ context.Context, name string) (any, bool, error) {
	if v, ok := e.lookup(name); ok {
		return StringToValue(v), true, nil
	}
	alt := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
	if alt != name {
		if v, ok := e.lookup(alt); ok {
			return StringToValue(v), true, nil
		}
	}
	return nil, false, nil
}

var (
	decimalInt = regexp.MustCompile(`^[-+]?(0|[1-9][0-9]*)$`)
	decimalExp = regexp.MustCompile(`^[-+]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][-+]?[0-9]+)?$`)
)

// StringToValue converts textual booleans and decimal numbers to typed
// values so that environment-provided settings compare like YAML-provided
// ones. Octal, hex and underscore forms stay text.
func StringToValue(s string) any {
	switch s {
	case "true", "false":
		return cast.ToBool(s)
	}
	if decimalInt.MatchString(s) {
		if i, err := cast.ToIntE(s); err == nil {
			return i
		}
	}
	if strings.ContainsAny(s, ".eE") && decimalExp.MatchString(s) {
		if f, err := cast.ToFloat64E(s); err == nil {
			return f
		}
	}
	return s
}
