package constraints

import (
	"errors"
	"fmt"
	"reflect"

	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/validation"
)

// Constraint is a single named validation rule attached to one property.
type Constraint interface {
	Name() string

	// Supports reports whether the constraint can be applied to properties
	// of type t.
	Supports(t reflect.Type) bool

	SetParameter(param any) error
	Parameter() any

	// Validate checks value, the current value of the bound property of
	// target, and rejects it into errs when it does not pass.
	Validate(target, value any, errs validation.Errors)

	// IsValid reports whether the constraint can be used for the class and
	// property it is bound to.
	IsValid() bool

	SetMessageSource(source validation.MessageSource)
	Bind(owner models.DomainClass, property string)
	Owner() models.DomainClass
	PropertyName() string
}

// VetoingConstraint is a constraint that can stop validation of the
// remaining constraints of its property.
type VetoingConstraint interface {
	Constraint

	// ValidateWithVetoing validates like Validate and returns true when no
	// further constraint should be evaluated for this value.
	ValidateWithVetoing(target, value any, errs validation.Errors) bool
}

// Toggle is implemented by constraints switched on or off by a boolean
// parameter. A constraint that is switched off is never attached.
type Toggle interface {
	Enabled() bool
}

// baseConstraint carries the state shared by every built-in constraint and
// the rejection logic that turns a failure into a field error.
type baseConstraint struct {
	name     string
	owner    models.DomainClass
	property string
	param    any
	messages validation.MessageSource
}

func (c *baseConstraint) Name() string { return c.name }

func (c *baseConstraint) Bind(owner models.DomainClass, property string) {
	c.owner = owner
	c.property = property
}

func (c *baseConstraint) Owner() models.DomainClass { return c.owner }
func (c *baseConstraint) PropertyName() string      { return c.property }
func (c *baseConstraint) Parameter() any            { return c.param }
func (c *baseConstraint) IsValid() bool             { return true }

func (c *baseConstraint) SetMessageSource(source validation.MessageSource) {
	c.messages = source
}

func (c *baseConstraint) propertyType() reflect.Type {
	if c.owner == nil {
		return nil
	}
	t, _ := c.owner.PropertyType(c.property)
	return t
}

func (c *baseConstraint) ownerName() string {
	if c.owner == nil {
		return ""
	}
	return c.owner.Name()
}

func (c *baseConstraint) ready() bool {
	return c.owner != nil && c.property != "" && c.param != nil
}

// skip reports whether value should not be validated: unbound constraints,
// nil values and blank strings are left to nullable and blank.
func (c *baseConstraint) skip(value any) bool {
	if !c.ready() || helpers.IsNil(value) {
		return true
	}
	if s, ok := value.(string); ok && helpers.IsBlank(s) {
		return true
	}
	return false
}

func (c *baseConstraint) args(value any, params ...any) []any {
	return append([]any{c.property, c.ownerName(), value}, params...)
}

func (c *baseConstraint) parameterError(expected string) error {
	return fmt.Errorf("parameter for constraint [%s] of property [%s] of class [%s] must be %s",
		c.name, c.property, c.ownerName(), expected)
}

// conversionError reports a parameter that does not fit the property type.
func (c *baseConstraint) conversionError(param any, err error) error {
	if errors.Is(err, helpers.ErrLossyConversion) {
		return &validation.PropertyError{Owner: c.ownerName(), Property: c.property, Constraint: c.name, Value: param, Err: err}
	}
	return fmt.Errorf("constraint [%s] of property [%s]: %w", c.name, c.property, err)
}

func (c *baseConstraint) defaultMessage(code string) string {
	if c.messages != nil {
		if msg, ok := c.messages.GetMessage(code, nil); ok {
			return msg
		}
	}
	return validation.DefaultMessages[code]
}

// reject records a field error for value. The error carries the codes
// "<Owner>.<prop>.<name>.error" and "<owner>.<prop>.<name>.error" followed,
// for every code, by "<Owner>.<prop>.<code>", "<owner>.<prop>.<code>" and
// "<code>", each expanded by the sink's codes resolver.
func (c *baseConstraint) reject(value any, errs validation.Errors, defaultMessageCode string, codes []string, args []any) {
	fieldType := c.propertyType()
	owner := c.ownerName()
	short := helpers.PropertyName(owner)
	if c.owner != nil {
		short = c.owner.ShortName()
	}

	seen := make(map[string]bool)
	var all []string
	add := func(code string) {
		for _, resolved := range errs.ResolveMessageCodes(code, c.property, fieldType) {
			if !seen[resolved] {
				seen[resolved] = true
				all = append(all, resolved)
			}
		}
	}
	add(owner + "." + c.property + "." + c.name + ".error")
	add(short + "." + c.property + "." + c.name + ".error")
	for _, code := range codes {
		add(owner + "." + c.property + "." + code)
		add(short + "." + c.property + "." + code)
		add(code)
	}

	errs.AddFieldError(validation.FieldError{
		ObjectError: validation.ObjectError{
			Codes:          all,
			Args:           c.labelArgs(args),
			DefaultMessage: c.defaultMessage(defaultMessageCode),
		},
		Field:         c.property,
		RejectedValue: value,
	})
}

// labelArgs replaces the property and class arguments with their labels
// when the message source defines "<Owner>.<prop>.error.label" or
// "<Owner>.error.label" (or their short-name forms).
func (c *baseConstraint) labelArgs(args []any) []any {
	if c.messages == nil || len(args) < 2 || c.owner == nil {
		return args
	}
	out := append([]any(nil), args...)
	owner, short := c.owner.Name(), c.owner.ShortName()
	if label, ok := c.label(owner+".error.label", short+".error.label"); ok {
		out[1] = label
	}
	if label, ok := c.label(owner+"."+c.property+".error.label", short+"."+c.property+".error.label"); ok {
		out[0] = label
	}
	return out
}

func (c *baseConstraint) label(codes ...string) (string, bool) {
	for _, code := range codes {
		if msg, ok := c.messages.GetMessage(code, nil); ok {
			return msg, true
		}
	}
	return "", false
}

func isStringType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.String
}

func boolParameter(c *baseConstraint, param any) (bool, error) {
	b, ok := param.(bool)
	if !ok {
		return false, c.parameterError("a boolean value")
	}
	return b, nil
}
