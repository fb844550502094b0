package param

import (
	"errors"
	"fmt"
)

var (
	// ErrNotDeclared is returned when operating on a parameter that was never declared.
	ErrNotDeclared = fmt.Errorf("parameter not declared")
	// ErrReadOnly is returned when setting a read-only parameter.
	ErrReadOnly = fmt.Errorf("parameter is read-only")
	// ErrInvalidName is returned for empty or malformed parameter names.
	ErrInvalidName = fmt.Errorf("invalid parameter name")
	// ErrRejected is returned when an on-set callback refuses a change.
	ErrRejected = fmt.Errorf("parameter change rejected")
)

// TypeMismatchError reports that a stored or overriding value has a different
// type than the one requested or declared.
// Err is set when the kinds agree but the value does not fit the requested
// Go type.
type TypeMismatchError struct {
	Name     string
	Expected Type
	Actual   Type
	Err      error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("parameter type mismatch: expected %s, got %s", e.Expected, e.Actual)
	if e.Name != "" {
		msg = fmt.Sprintf("parameter %q type mismatch: expected %s, got %s", e.Name, e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the narrowing failure, if any.
func (e *TypeMismatchError) Unwrap() error { return e.Err }

// DuplicateDeclarationError reports a second declaration of the same name.
type DuplicateDeclarationError struct {
	Name string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("parameter %q has already been declared", e.Name)
}

// NoOverrideError reports a statically typed declaration without a default
// for which no override was supplied.
type NoOverrideError struct {
	Name string
	Type Type
}

func (e *NoOverrideError) Error() string {
	return fmt.Sprintf("parameter %q of type %s has no default and no override was provided", e.Name, e.Type)
}

// RangeError reports a value outside the descriptor's range.
type RangeError struct {
	Name   string
	Value  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("parameter %q value %s rejected: %s", e.Name, e.Value, e.Reason)
}

func asTypeMismatch(err error, target **TypeMismatchError) bool {
	return errors.As(err, target)
}
