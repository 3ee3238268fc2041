package param

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidValue indicates a value that does not fit the parameter kind.
	ErrInvalidValue = errors.New("param: invalid parameter value")

	// ErrNotPrefixed indicates a name without a prefix/index split.
	ErrNotPrefixed = errors.New("param: not a prefixed parameter name")
)

type InvalidValueError struct {
	Param string
	Kind  Kind
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("param: invalid value %q for %s parameter %s", e.Value, e.Kind, e.Param)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}
