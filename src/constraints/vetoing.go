package constraints

import (
	"reflect"

	"griffon/src/helpers"
	"griffon/src/validation"
)

// BlankConstraint rejects blank strings when its parameter is false.
type BlankConstraint struct {
	baseConstraint
	blank bool
}

var _ VetoingConstraint = (*BlankConstraint)(nil)

func NewBlankConstraint() Constraint {
	return &BlankConstraint{baseConstraint: baseConstraint{name: BlankConstraintName}}
}

func (c *BlankConstraint) Supports(t reflect.Type) bool { return isStringType(t) }

func (c *BlankConstraint) SetParameter(param any) error {
	b, err := boolParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.blank = b
	c.param = b
	return nil
}

// Blank reports whether blank strings are allowed.
func (c *BlankConstraint) Blank() bool { return c.blank }

func (c *BlankConstraint) Validate(target, value any, errs validation.Errors) {
	c.ValidateWithVetoing(target, value, errs)
}

func (c *BlankConstraint) ValidateWithVetoing(target, value any, errs validation.Errors) bool {
	if !c.ready() {
		return false
	}
	s, ok := value.(string)
	if ok && helpers.IsBlank(s) && !c.blank {
		c.reject(value, errs, validation.DefaultBlankMessageCode, []string{BlankConstraintName}, c.args(value))
		return true
	}
	return false
}

// NullableConstraint rejects nil values when its parameter is false. A nil
// value always stops further validation.
type NullableConstraint struct {
	baseConstraint
	nullable bool
}

var _ VetoingConstraint = (*NullableConstraint)(nil)

func NewNullableConstraint() Constraint {
	return &NullableConstraint{baseConstraint: baseConstraint{name: NullableConstraintName}}
}

func (c *NullableConstraint) Supports(t reflect.Type) bool { return t != nil }

func (c *NullableConstraint) SetParameter(param any) error {
	b, err := boolParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.nullable = b
	c.param = b
	return nil
}

// Nullable reports whether nil values are allowed.
func (c *NullableConstraint) Nullable() bool { return c.nullable }

func (c *NullableConstraint) Validate(target, value any, errs validation.Errors) {
	c.ValidateWithVetoing(target, value, errs)
}

func (c *NullableConstraint) ValidateWithVetoing(target, value any, errs validation.Errors) bool {
	if !c.ready() || !helpers.IsNil(value) {
		return false
	}
	if !c.nullable {
		c.reject(value, errs, validation.DefaultNullMessageCode, []string{NullableConstraintName}, c.args(value))
	}
	return true
}
