package timing

import (
	"errors"
	"fmt"
)

// Domain errors for model operations.
var (
	// ErrUnknownParameter indicates a name absent from the model namespace.
	ErrUnknownParameter = errors.New("timing: unknown parameter")

	// ErrDuplicateParameter indicates a name or alias collision.
	ErrDuplicateParameter = errors.New("timing: duplicate parameter")

	// ErrComponentNotFound indicates a registry lookup miss.
	ErrComponentNotFound = errors.New("timing: component not found")

	// ErrNoDerivative indicates a known parameter without a registered
	// analytic derivative. Callers may fall back to numeric differentiation.
	ErrNoDerivative = errors.New("timing: no derivative registered")

	// ErrMissingParameter indicates a failed post-load validation.
	ErrMissingParameter = errors.New("timing: missing required parameter")

	// ErrLengthMismatch indicates a contribution whose length differs from
	// the batch.
	ErrLengthMismatch = errors.New("timing: contribution length does not match batch")
)

// UnknownParameterError names a parameter the model cannot resolve.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("timing: unknown parameter %q", e.Name)
}

func (e *UnknownParameterError) Unwrap() error { return ErrUnknownParameter }

// DuplicateParameterError reports a name or alias already used by Owner.
type DuplicateParameterError struct {
	Name  string
	Owner string
}

func (e *DuplicateParameterError) Error() string {
	return fmt.Sprintf("timing: parameter name %q already used by %s", e.Name, e.Owner)
}

func (e *DuplicateParameterError) Unwrap() error { return ErrDuplicateParameter }

// ComponentNotFoundError reports a registry lookup miss.
type ComponentNotFoundError struct {
	Name string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("timing: no component %q in the model", e.Name)
}

func (e *ComponentNotFoundError) Unwrap() error { return ErrComponentNotFound }

// NoDerivativeError reports a known parameter with no registered delay or
// phase derivative.
type NoDerivativeError struct {
	Param string
	Of    string // "delay" or "phase"
}

func (e *NoDerivativeError) Error() string {
	return fmt.Sprintf("timing: no %s derivative registered for %q", e.Of, e.Param)
}

func (e *NoDerivativeError) Unwrap() error { return ErrNoDerivative }

// MissingParameterError is returned by component Setup.
type MissingParameterError struct {
	Component string
	Param     string
	Msg       string
}

func (e *MissingParameterError) Error() string {
	s := fmt.Sprintf("timing: %s.%s is required", e.Component, e.Param)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *MissingParameterError) Unwrap() error { return ErrMissingParameter }

// UnparsedRecordWarning describes a par-file record no parameter consumed.
// It is logged and kept on the model, never returned as an error.
type UnparsedRecordWarning struct {
	Line   int
	Record string
}

func (w UnparsedRecordWarning) String() string {
	return fmt.Sprintf("line %d: unrecognized record %q", w.Line, w.Record)
}
