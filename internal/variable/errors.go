package variable

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownVariable         = errors.New("unknown variable")
	ErrCyclicVariableReference = errors.New("cyclic variable reference")
	ErrMalformedPlaceholder    = errors.New("malformed placeholder")
)

// Error carries the variable and scope a resolution failed in.
type Error struct {
	Scope    string
	Variable string
	Chain    []string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v %q", e.Err, e.Variable)
	if len(e.Chain) > 0 {
		msg += " (" + strings.Join(e.Chain, " -> ") + ")"
	}
	if e.Scope != "" {
		msg += " in " + e.Scope
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
