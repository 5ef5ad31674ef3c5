package buildconf

import (
	"errors"
	"fmt"

	"github.com/sofmeright/droidplan/src/descriptor"
)

// All load failures wrap exactly one of these. None are recoverable: the
// caller is expected to halt the build.
var (
	ErrMalformedDescriptor   = errors.New("malformed descriptor")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrUnresolvedReference   = errors.New("unresolved reference")
	ErrSigningConfigNotFound = errors.New("signing config not found")
	ErrUnknownBuildType      = errors.New("unknown build type")
)

// LoadError locates a load failure in the descriptor.
type LoadError struct {
	Kind  error
	Pos   descriptor.Pos
	Field string
	Msg   string
	Err   error
}

func (e *LoadError) Error() string {
	where := e.Pos.String()
	if e.Pos.Line == 0 {
		where = e.Pos.File
	}
	msg := e.Kind.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if where == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", where, msg)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
