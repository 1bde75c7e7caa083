package validation

import (
	"errors"
	"fmt"
)

var (
	ErrConstraintNotSupported = errors.New("constraint not supported")
	ErrUnknownProperty        = errors.New("unknown property")
	ErrNotUnique              = errors.New("value is not unique")
	ErrNoIdentity             = errors.New("entity has no identity property")
	ErrValidationFailed       = errors.New("validation failed")
)

// PropertyError reports a property that does not exist on a class, a
// constraint parameter whose type does not match the property's type, or a
// value the property's type cannot hold. Err carries the conversion failure.
type PropertyError struct {
	Owner      string
	Property   string
	Constraint string
	Value      any
	Err        error
}

func (e *PropertyError) Error() string {
	switch {
	case e.Constraint != "" && e.Err != nil:
		return fmt.Sprintf("property [%s] of class [%s] cannot be constrained by [%s] with parameter [%v]: %v",
			e.Property, e.Owner, e.Constraint, e.Value, e.Err)
	case e.Constraint != "":
		return fmt.Sprintf("property [%s] of class [%s] cannot be constrained by [%s] with a parameter of a different type",
			e.Property, e.Owner, e.Constraint)
	case e.Err != nil:
		return fmt.Sprintf("property [%s] of class [%s] cannot hold value [%v]: %v", e.Property, e.Owner, e.Value, e.Err)
	}
	return fmt.Sprintf("no such property [%s] on class [%s]", e.Property, e.Owner)
}

func (e *PropertyError) Is(target error) bool {
	return target == ErrUnknownProperty && e.Constraint == "" && e.Err == nil
}

func (e *PropertyError) Unwrap() error { return e.Err }

// ConstraintError reports a constraint that could not be applied.
type ConstraintError struct {
	Constraint string
	Owner      string
	Property   string
	Value      any
	Err        error
}

func (e *ConstraintError) Error() string {
	msg := fmt.Sprintf("exception thrown applying constraint [%s] to property [%s] of class [%s] for value [%v]",
		e.Constraint, e.Property, e.Owner, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// ValidationError is returned by fail-fast operations whose target did not
// pass validation.
type ValidationError struct {
	Message string
	Errors  Errors
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrValidationFailed
}
