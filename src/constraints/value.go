package constraints

import (
	"math"
	"reflect"

	"griffon/src/helpers"
	"griffon/src/validation"
)

// InListConstraint rejects values that are not in a list.
type InListConstraint struct {
	baseConstraint
	list []any
}

func NewInListConstraint() Constraint {
	return &InListConstraint{baseConstraint: baseConstraint{name: InListConstraintName}}
}

func (c *InListConstraint) Supports(t reflect.Type) bool { return t != nil }

func (c *InListConstraint) SetParameter(param any) error {
	rv := reflect.ValueOf(param)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return c.parameterError("a list")
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	c.list = list
	c.param = list
	return nil
}

// List returns the allowed values.
func (c *InListConstraint) List() []any { return append([]any(nil), c.list...) }

func (c *InListConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	for _, v := range c.list {
		if helpers.Equals(value, v) {
			return
		}
	}
	c.reject(value, errs, validation.DefaultNotInListMessageCode,
		[]string{NotPrefix + InListConstraintName}, c.args(value, c.list))
}

// NotEqualConstraint rejects one specific value.
type NotEqualConstraint struct {
	baseConstraint
}

func NewNotEqualConstraint() Constraint {
	return &NotEqualConstraint{baseConstraint: baseConstraint{name: NotEqualConstraintName}}
}

func (c *NotEqualConstraint) Supports(t reflect.Type) bool { return t != nil }

func (c *NotEqualConstraint) SetParameter(param any) error {
	if param == nil {
		return c.parameterError("a value")
	}
	c.param = param
	return nil
}

// NotEqualTo returns the forbidden value.
func (c *NotEqualConstraint) NotEqualTo() any { return c.param }

func (c *NotEqualConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	if helpers.Equals(value, c.param) {
		c.reject(value, errs, validation.DefaultNotEqualMessageCode,
			[]string{NotEqualConstraintName}, c.args(value, c.param))
	}
}

// boundParameter converts a max or min parameter to the property type.
func boundParameter(c *baseConstraint, param any) (any, error) {
	if param == nil {
		return nil, c.parameterError("a comparable value")
	}
	t := c.propertyType()
	if t != nil && helpers.IsNumericType(t) {
		if !helpers.IsNumber(param) {
			return nil, &validation.PropertyError{Owner: c.ownerName(), Property: c.property, Constraint: c.name}
		}
		v, err := helpers.Coerce(param, t)
		if err != nil {
			return nil, c.conversionError(param, err)
		}
		return v, nil
	}
	if t != nil && reflect.TypeOf(param) != t {
		return nil, &validation.PropertyError{Owner: c.ownerName(), Property: c.property, Constraint: c.name}
	}
	if _, err := helpers.Compare(param, param); err != nil {
		return nil, c.parameterError("a comparable value")
	}
	return param, nil
}

// MaxConstraint rejects values greater than a maximum.
type MaxConstraint struct {
	baseConstraint
}

func NewMaxConstraint() Constraint {
	return &MaxConstraint{baseConstraint: baseConstraint{name: MaxConstraintName}}
}

func (c *MaxConstraint) Supports(t reflect.Type) bool { return helpers.IsComparableType(t) }

func (c *MaxConstraint) SetParameter(param any) error {
	v, err := boundParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.param = v
	return nil
}

// MaxValue returns the maximum.
func (c *MaxConstraint) MaxValue() any { return c.param }

func (c *MaxConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	if cmp, err := helpers.Compare(value, c.param); err == nil && cmp > 0 {
		c.reject(value, errs, validation.DefaultInvalidMaxMessageCode,
			[]string{MaxConstraintName + ExceededSuffix}, c.args(value, c.param))
	}
}

// MinConstraint rejects values lower than a minimum.
type MinConstraint struct {
	baseConstraint
}

func NewMinConstraint() Constraint {
	return &MinConstraint{baseConstraint: baseConstraint{name: MinConstraintName}}
}

func (c *MinConstraint) Supports(t reflect.Type) bool { return helpers.IsComparableType(t) }

func (c *MinConstraint) SetParameter(param any) error {
	v, err := boundParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.param = v
	return nil
}

// MinValue returns the minimum.
func (c *MinConstraint) MinValue() any { return c.param }

func (c *MinConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	if cmp, err := helpers.Compare(value, c.param); err == nil && cmp < 0 {
		c.reject(value, errs, validation.DefaultInvalidMinMessageCode,
			[]string{MinConstraintName + NotMetSuffix}, c.args(value, c.param))
	}
}

// RangeConstraint rejects values outside an inclusive range.
type RangeConstraint struct {
	baseConstraint
	rng *Range
}

func NewRangeConstraint() Constraint {
	return &RangeConstraint{baseConstraint: baseConstraint{name: RangeConstraintName}}
}

func (c *RangeConstraint) Supports(t reflect.Type) bool { return helpers.IsComparableType(t) }

func (c *RangeConstraint) SetParameter(param any) error {
	r, err := toRange(param, c.propertyType())
	if err != nil {
		return c.conversionError(param, err)
	}
	c.rng = r
	c.param = r
	return nil
}

// Range returns a copy of the range.
func (c *RangeConstraint) Range() *Range {
	if c.rng == nil {
		return nil
	}
	return &Range{From: c.rng.From, To: c.rng.To}
}

func (c *RangeConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	args := c.args(value, c.rng.From, c.rng.To)
	if cmp, err := helpers.Compare(value, c.rng.From); err == nil && cmp < 0 {
		c.reject(value, errs, validation.DefaultInvalidRangeMessageCode,
			[]string{RangeConstraintName + TooSmallSuffix}, args)
		return
	}
	if cmp, err := helpers.Compare(value, c.rng.To); err == nil && cmp > 0 {
		c.reject(value, errs, validation.DefaultInvalidRangeMessageCode,
			[]string{RangeConstraintName + TooBigSuffix}, args)
	}
}

// ScaleConstraint rounds floating point values half up to a number of
// decimal places. It never rejects.
type ScaleConstraint struct {
	baseConstraint
	scale int
}

func NewScaleConstraint() Constraint {
	return &ScaleConstraint{baseConstraint: baseConstraint{name: ScaleConstraintName}}
}

func (c *ScaleConstraint) Supports(t reflect.Type) bool {
	return t != nil && (t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64)
}

func (c *ScaleConstraint) SetParameter(param any) error {
	n, ok := helpers.ToInt(param)
	if !ok || n < 0 {
		return c.parameterError("a positive integer value")
	}
	c.scale = n
	c.param = n
	return nil
}

// Scale returns the number of decimal places.
func (c *ScaleConstraint) Scale() int { return c.scale }

func (c *ScaleConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	f, ok := helpers.ToFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	pow := math.Pow(10, float64(c.scale))
	rounded := math.Floor(f*pow+0.5) / pow
	if f < 0 {
		rounded = -math.Floor(-f*pow+0.5) / pow
	}
	if rounded == f {
		return
	}
	if p, ok := c.owner.Property(c.property); ok {
		_ = p.SetValue(target, rounded)
	}
}
