package role

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRole                    = errors.New("unknown role")
	ErrCyclicInheritance              = errors.New("cyclic role inheritance")
	ErrIncompatibleVariantInheritance = errors.New("role without variants inherits from a role with variants")
)

// ResolveError reports a failed inheritance resolution. Context names the
// caller (for example the environment and node) so the message is
// actionable without a stack trace.
type ResolveError struct {
	Context string
	Role    string
	Path    []string
	Err     error
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	if e.Context != "" {
		b.WriteString(e.Context)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "role %q: %v", e.Role, e.Err)
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Path, " -> "))
	}
	return b.String()
}

func (e *ResolveError) Unwrap() error { return e.Err }
