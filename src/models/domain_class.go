package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"griffon/src/helpers"
	"griffon/src/validation"
)

// TagName is the struct tag that renames or hides a property.
const TagName = "griffon"

type structClass struct {
	name       string
	shortName  string
	typ        reflect.Type
	properties []DomainProperty
	byName     map[string]*fieldProperty
	identity   *fieldProperty
}

type fieldProperty struct {
	class    *structClass
	name     string
	index    []int
	typ      reflect.Type
	pointer  bool
	identity bool
}

// NewDomainClass builds class metadata from a struct or pointer-to-struct
// prototype. Exported fields become properties named by their griffon tag or
// by the lower camel form of the field name; a tag of "-" skips the field.
// An integer field named "id" becomes the identity property.
func NewDomainClass(name string, prototype any) (DomainClass, error) {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("domain class %s: prototype must be a struct, got %T", name, prototype)
	}
	if name == "" {
		name = t.Name()
	}

	c := &structClass{
		name:      name,
		shortName: helpers.PropertyName(name),
		typ:       t,
		byName:    make(map[string]*fieldProperty),
	}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		propName := helpers.PropertyName(f.Name)
		if tag, ok := f.Tag.Lookup(TagName); ok {
			tag = strings.Split(tag, ",")[0]
			if tag == "-" {
				continue
			}
			if tag != "" {
				propName = tag
			}
		}
		if _, dup := c.byName[propName]; dup {
			return nil, fmt.Errorf("domain class %s: duplicate property %q", name, propName)
		}
		p := &fieldProperty{class: c, name: propName, index: f.Index, typ: f.Type}
		if f.Type.Kind() == reflect.Ptr {
			p.pointer = true
			p.typ = f.Type.Elem()
		}
		if propName == IdentityProperty && helpers.IsNumericType(p.typ) && !p.pointer {
			p.identity = true
			c.identity = p
		}
		c.byName[propName] = p
		c.properties = append(c.properties, p)
	}
	return c, nil
}

// MustDomainClass is like NewDomainClass but panics on error. It is meant for
// package level class declarations.
func MustDomainClass(name string, prototype any) DomainClass {
	c, err := NewDomainClass(name, prototype)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *structClass) Name() string      { return c.name }
func (c *structClass) ShortName() string { return c.shortName }
func (c *structClass) Type() reflect.Type { return c.typ }

func (c *structClass) New() any {
	return reflect.New(c.typ).Interface()
}

func (c *structClass) IsInstance(v any) bool {
	_, ok := c.value(v)
	return ok
}

func (c *structClass) Properties() []DomainProperty {
	return append([]DomainProperty(nil), c.properties...)
}

func (c *structClass) PersistentProperties() []DomainProperty {
	var props []DomainProperty
	for _, p := range c.properties {
		if p.IsPersistent() {
			props = append(props, p)
		}
	}
	return props
}

func (c *structClass) Property(name string) (DomainProperty, bool) {
	p, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return p, true
}

func (c *structClass) PropertyType(name string) (reflect.Type, bool) {
	p, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return p.typ, true
}

func (c *structClass) Identity() DomainProperty {
	if c.identity == nil {
		return nil
	}
	return c.identity
}

func (c *structClass) IdentityOf(entity any) (int64, error) {
	if c.identity == nil {
		return 0, fmt.Errorf("%s: %w", c.name, validation.ErrNoIdentity)
	}
	rv, ok := c.value(entity)
	if !ok {
		return 0, fmt.Errorf("%T is not an instance of %s", entity, c.name)
	}
	id, _ := helpers.ToInt(rv.FieldByIndex(c.identity.index).Interface())
	return int64(id), nil
}

func (c *structClass) SetIdentity(entity any, id int64) error {
	if c.identity == nil {
		return fmt.Errorf("%s: %w", c.name, validation.ErrNoIdentity)
	}
	return c.identity.SetValue(entity, id)
}

func (c *structClass) ToMap(entity any) map[string]any {
	out := make(map[string]any, len(c.properties))
	for _, p := range c.properties {
		out[p.Name()] = p.Value(entity)
	}
	return out
}

func (c *structClass) FromMap(values map[string]any) (any, error) {
	entity := c.New()
	for name, v := range values {
		p, ok := c.byName[name]
		if !ok {
			return nil, &validation.PropertyError{Owner: c.name, Property: name}
		}
		if err := p.SetValue(entity, v); err != nil {
			return nil, err
		}
	}
	return entity, nil
}

// value returns the struct value behind entity, which may be the struct
// itself or a pointer to it.
func (c *structClass) value(entity any) (reflect.Value, bool) {
	if entity == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(entity)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if rv.Type() != c.typ {
		return reflect.Value{}, false
	}
	return rv, true
}

func (p *fieldProperty) Name() string       { return p.name }
func (p *fieldProperty) Type() reflect.Type { return p.typ }
func (p *fieldProperty) IsIdentity() bool   { return p.identity }
func (p *fieldProperty) IsPersistent() bool { return !p.identity }

func (p *fieldProperty) Value(entity any) any {
	rv, ok := p.class.value(entity)
	if !ok {
		return nil
	}
	f := rv.FieldByIndex(p.index)
	switch f.Kind() {
	case reflect.Ptr:
		if f.IsNil() {
			return nil
		}
		return f.Elem().Interface()
	case reflect.Map, reflect.Slice, reflect.Interface:
		if f.IsNil() {
			return nil
		}
	}
	return f.Interface()
}

func (p *fieldProperty) SetValue(entity any, v any) error {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != p.class.typ {
		return fmt.Errorf("cannot set property %s: %T is not a pointer to %s", p.name, entity, p.class.name)
	}
	f := rv.Elem().FieldByIndex(p.index)
	if helpers.IsNil(v) {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	converted, err := helpers.Coerce(v, p.typ)
	if errors.Is(err, helpers.ErrLossyConversion) {
		return &validation.PropertyError{Owner: p.class.name, Property: p.name, Value: v, Err: err}
	}
	if err != nil {
		return fmt.Errorf("property %s of class %s: %w", p.name, p.class.name, err)
	}
	if p.pointer {
		ptr := reflect.New(p.typ)
		ptr.Elem().Set(reflect.ValueOf(converted))
		f.Set(ptr)
		return nil
	}
	f.Set(reflect.ValueOf(converted))
	return nil
}
