package constraints

import (
	"fmt"
	"reflect"

	"griffon/src/validation"
)

// UniquenessChecker looks up persisted entities for the unique constraint.
type UniquenessChecker interface {
	// FindOther reports whether an entity other than target exists whose
	// properties equal values.
	FindOther(target any, values map[string]any) bool
}

// UniqueConstraint requires a property value, optionally combined with the
// values of a uniqueness group, to be unique among persisted entities.
//
// Without a checker the constraint only carries metadata; persistence
// layers read Group and enforce uniqueness when they write.
type UniqueConstraint struct {
	baseConstraint
	unique  bool
	group   []string
	checker UniquenessChecker
}

var _ Toggle = (*UniqueConstraint)(nil)

func NewUniqueConstraint() Constraint {
	return &UniqueConstraint{baseConstraint: baseConstraint{name: UniqueConstraintName}}
}

// UniqueConstraintFactory returns a factory whose constraints consult
// checker during validation.
func UniqueConstraintFactory(checker UniquenessChecker) Factory {
	return func() Constraint {
		c := NewUniqueConstraint().(*UniqueConstraint)
		c.checker = checker
		return c
	}
}

func (c *UniqueConstraint) Supports(t reflect.Type) bool { return t != nil }

// IsValid is false for classes without an identity.
func (c *UniqueConstraint) IsValid() bool {
	return c.owner != nil && c.owner.Identity() != nil
}

func (c *UniqueConstraint) SetParameter(param any) error {
	var group []string
	unique := false
	switch p := param.(type) {
	case bool:
		unique = p
	case string:
		group = []string{p}
	case []string:
		group = append(group, p...)
	case []any:
		for _, v := range p {
			s, ok := v.(string)
			if !ok {
				return c.parameterError("a boolean or string value")
			}
			group = append(group, s)
		}
	default:
		return c.parameterError("a boolean or string value")
	}
	if len(group) > 0 {
		unique = true
		for _, name := range group {
			if c.owner == nil {
				break
			}
			if _, ok := c.owner.Property(name); !ok {
				return fmt.Errorf("scope for constraint [%s] of property [%s] of class [%s] must be a valid property name of same class",
					c.name, c.property, c.ownerName())
			}
		}
	}
	c.unique = unique
	c.group = group
	c.param = param
	return nil
}

func (c *UniqueConstraint) Enabled() bool { return c.unique }

// Group returns the other properties that form the uniqueness key.
func (c *UniqueConstraint) Group() []string { return append([]string(nil), c.group...) }

// Properties returns the full uniqueness key: the constrained property
// followed by its group.
func (c *UniqueConstraint) Properties() []string {
	return append([]string{c.property}, c.group...)
}

func (c *UniqueConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) || !c.unique || c.checker == nil {
		return
	}
	values := map[string]any{c.property: value}
	for _, name := range c.group {
		if p, ok := c.owner.Property(name); ok {
			values[name] = p.Value(target)
		}
	}
	if c.checker.FindOther(target, values) {
		c.reject(value, errs, validation.DefaultNotUniqueMessageCode,
			[]string{UniqueConstraintName}, c.args(value))
	}
}
