package constraints

import (
	"reflect"

	"griffon/src/helpers"
	"griffon/src/validation"
)

func sizeParameter(c *baseConstraint, param any) (int, error) {
	n, ok := helpers.ToInt(param)
	if !ok || n < 0 {
		return 0, c.parameterError("a positive integer value")
	}
	return n, nil
}

// MaxSizeConstraint rejects strings and collections longer than a limit.
type MaxSizeConstraint struct {
	baseConstraint
	maxSize int
}

func NewMaxSizeConstraint() Constraint {
	return &MaxSizeConstraint{baseConstraint: baseConstraint{name: MaxSizeConstraintName}}
}

func (c *MaxSizeConstraint) Supports(t reflect.Type) bool { return helpers.IsSizedType(t) }

func (c *MaxSizeConstraint) SetParameter(param any) error {
	n, err := sizeParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.maxSize = n
	c.param = n
	return nil
}

// MaxSize returns the limit.
func (c *MaxSizeConstraint) MaxSize() int { return c.maxSize }

func (c *MaxSizeConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	if n, ok := helpers.SizeOf(value); ok && n > c.maxSize {
		c.reject(value, errs, validation.DefaultInvalidMaxSizeMessageCode,
			[]string{MaxSizeConstraintName + ExceededSuffix}, c.args(value, c.maxSize))
	}
}

// MinSizeConstraint rejects strings and collections shorter than a limit.
type MinSizeConstraint struct {
	baseConstraint
	minSize int
}

func NewMinSizeConstraint() Constraint {
	return &MinSizeConstraint{baseConstraint: baseConstraint{name: MinSizeConstraintName}}
}

func (c *MinSizeConstraint) Supports(t reflect.Type) bool { return helpers.IsSizedType(t) }

func (c *MinSizeConstraint) SetParameter(param any) error {
	n, err := sizeParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.minSize = n
	c.param = n
	return nil
}

// MinSize returns the limit.
func (c *MinSizeConstraint) MinSize() int { return c.minSize }

func (c *MinSizeConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	if n, ok := helpers.SizeOf(value); ok && n < c.minSize {
		c.reject(value, errs, validation.DefaultInvalidMinSizeMessageCode,
			[]string{MinSizeConstraintName + NotMetSuffix}, c.args(value, c.minSize))
	}
}

// SizeConstraint rejects strings and collections whose length is outside an
// integer range.
type SizeConstraint struct {
	baseConstraint
	rng *Range
}

func NewSizeConstraint() Constraint {
	return &SizeConstraint{baseConstraint: baseConstraint{name: SizeConstraintName}}
}

func (c *SizeConstraint) Supports(t reflect.Type) bool { return helpers.IsSizedType(t) }

func (c *SizeConstraint) SetParameter(param any) error {
	r, err := toRange(param, reflect.TypeOf(0))
	if err != nil {
		return c.conversionError(param, err)
	}
	if _, ok := r.From.(int); !ok {
		return c.parameterError("an integer range")
	}
	if _, ok := r.To.(int); !ok {
		return c.parameterError("an integer range")
	}
	c.rng = r
	c.param = r
	return nil
}

// Range returns a copy of the size range.
func (c *SizeConstraint) Range() *Range {
	if c.rng == nil {
		return nil
	}
	return &Range{From: c.rng.From, To: c.rng.To}
}

func (c *SizeConstraint) from() int { return c.rng.From.(int) }
func (c *SizeConstraint) to() int   { return c.rng.To.(int) }

func (c *SizeConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	n, ok := helpers.SizeOf(value)
	if !ok {
		return
	}
	args := c.args(value, c.from(), c.to())
	if n < c.from() {
		c.reject(value, errs, validation.DefaultInvalidSizeMessageCode,
			[]string{SizeConstraintName + TooSmallSuffix}, args)
	} else if n > c.to() {
		c.reject(value, errs, validation.DefaultInvalidSizeMessageCode,
			[]string{SizeConstraintName + TooBigSuffix}, args)
	}
}
