package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"griffon/src/helpers"
	"griffon/src/validation"
)

// Record is the entity type of schema backed classes: an identity plus a
// property map.
type Record struct {
	mu     sync.RWMutex
	ID     int64
	Class  string
	fields map[string]any
}

// NewRecord returns an empty record of the named class.
func NewRecord(class string) *Record {
	return &Record{Class: class, fields: make(map[string]any)}
}

// Get returns the value stored under name.
func (r *Record) Get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields[name]
}

// Set stores value under name; a nil value removes the entry.
func (r *Record) Set(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == nil {
		delete(r.fields, name)
		return
	}
	r.fields[name] = value
}

// Fields returns a copy of the property map.
func (r *Record) Fields() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

func (r *Record) String() string {
	return fmt.Sprintf("%s{id=%d %v}", r.Class, r.ID, r.Fields())
}

var recordType = reflect.TypeOf((*Record)(nil)).Elem()

// PropertyDefinition declares one property of a schema class.
type PropertyDefinition struct {
	Name string
	Type reflect.Type
}

type schemaClass struct {
	name       string
	shortName  string
	properties []DomainProperty
	byName     map[string]*schemaProperty
	identity   *schemaProperty
}

type schemaProperty struct {
	class    *schemaClass
	name     string
	typ      reflect.Type
	identity bool
}

// NewSchemaClass builds a class whose entities are *Record values. Every
// schema class has an int64 identity named "id" in addition to the declared
// properties.
func NewSchemaClass(name string, defs []PropertyDefinition) (DomainClass, error) {
	if name == "" {
		return nil, fmt.Errorf("schema class name cannot be blank")
	}
	c := &schemaClass{
		name:      name,
		shortName: helpers.PropertyName(name),
		byName:    make(map[string]*schemaProperty),
	}
	c.identity = &schemaProperty{class: c, name: IdentityProperty, typ: reflect.TypeOf(int64(0)), identity: true}
	c.byName[IdentityProperty] = c.identity
	c.properties = append(c.properties, c.identity)
	for _, d := range defs {
		if d.Name == "" || d.Type == nil {
			return nil, fmt.Errorf("schema class %s: property needs a name and a type", name)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("schema class %s: duplicate property %q", name, d.Name)
		}
		p := &schemaProperty{class: c, name: d.Name, typ: d.Type}
		c.byName[d.Name] = p
		c.properties = append(c.properties, p)
	}
	return c, nil
}

// TypeByName maps the type names accepted in configuration files to Go types.
func TypeByName(name string) (reflect.Type, error) {
	switch name {
	case "string", "":
		return reflect.TypeOf(""), nil
	case "int":
		return reflect.TypeOf(0), nil
	case "int64", "long":
		return reflect.TypeOf(int64(0)), nil
	case "float", "float64", "double":
		return reflect.TypeOf(float64(0)), nil
	case "bool", "boolean":
		return reflect.TypeOf(false), nil
	case "list", "[]string":
		return reflect.TypeOf([]string{}), nil
	case "map":
		return reflect.TypeOf(map[string]any{}), nil
	case "any":
		return reflect.TypeOf((*any)(nil)).Elem(), nil
	}
	return nil, fmt.Errorf("unknown property type %q", name)
}

// SortedDefinitions turns a name to type-name map into definitions ordered
// by name.
func SortedDefinitions(types map[string]string) ([]PropertyDefinition, error) {
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)
	defs := make([]PropertyDefinition, 0, len(names))
	for _, n := range names {
		t, err := TypeByName(types[n])
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", n, err)
		}
		defs = append(defs, PropertyDefinition{Name: n, Type: t})
	}
	return defs, nil
}

func (c *schemaClass) Name() string      { return c.name }
func (c *schemaClass) ShortName() string { return c.shortName }
func (c *schemaClass) Type() reflect.Type { return recordType }
func (c *schemaClass) New() any          { return NewRecord(c.name) }

func (c *schemaClass) IsInstance(v any) bool {
	r, ok := v.(*Record)
	return ok && r != nil && r.Class == c.name
}

func (c *schemaClass) Properties() []DomainProperty {
	return append([]DomainProperty(nil), c.properties...)
}

func (c *schemaClass) PersistentProperties() []DomainProperty {
	return append([]DomainProperty(nil), c.properties[1:]...)
}

func (c *schemaClass) Property(name string) (DomainProperty, bool) {
	p, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return p, true
}

func (c *schemaClass) PropertyType(name string) (reflect.Type, bool) {
	p, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return p.typ, true
}

func (c *schemaClass) Identity() DomainProperty { return c.identity }

func (c *schemaClass) IdentityOf(entity any) (int64, error) {
	if !c.IsInstance(entity) {
		return 0, fmt.Errorf("%T is not an instance of %s", entity, c.name)
	}
	r := entity.(*Record)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ID, nil
}

func (c *schemaClass) SetIdentity(entity any, id int64) error {
	if !c.IsInstance(entity) {
		return fmt.Errorf("%T is not an instance of %s", entity, c.name)
	}
	r := entity.(*Record)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ID = id
	return nil
}

func (c *schemaClass) ToMap(entity any) map[string]any {
	out := make(map[string]any, len(c.properties))
	for _, p := range c.properties {
		out[p.Name()] = p.Value(entity)
	}
	return out
}

func (c *schemaClass) FromMap(values map[string]any) (any, error) {
	r := NewRecord(c.name)
	for name, v := range values {
		p, ok := c.byName[name]
		if !ok {
			return nil, &validation.PropertyError{Owner: c.name, Property: name}
		}
		if err := p.SetValue(r, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (p *schemaProperty) Name() string       { return p.name }
func (p *schemaProperty) Type() reflect.Type { return p.typ }
func (p *schemaProperty) IsIdentity() bool   { return p.identity }
func (p *schemaProperty) IsPersistent() bool { return !p.identity }

func (p *schemaProperty) Value(entity any) any {
	if !p.class.IsInstance(entity) {
		return nil
	}
	r := entity.(*Record)
	if p.identity {
		id, _ := p.class.IdentityOf(r)
		return id
	}
	return r.Get(p.name)
}

func (p *schemaProperty) SetValue(entity any, v any) error {
	if !p.class.IsInstance(entity) {
		return fmt.Errorf("cannot set property %s: %T is not an instance of %s", p.name, entity, p.class.name)
	}
	r := entity.(*Record)
	if p.identity {
		id, ok := helpers.ToInt(v)
		if !ok && v != nil {
			return fmt.Errorf("identity of %s must be an integer, got %T", p.class.name, v)
		}
		return p.class.SetIdentity(r, int64(id))
	}
	if helpers.IsNil(v) {
		r.Set(p.name, nil)
		return nil
	}
	converted, err := helpers.Coerce(v, p.typ)
	if errors.Is(err, helpers.ErrLossyConversion) {
		return &validation.PropertyError{Owner: p.class.name, Property: p.name, Value: v, Err: err}
	}
	if err != nil {
		return fmt.Errorf("property %s of class %s: %w", p.name, p.class.name, err)
	}
	r.Set(p.name, converted)
	return nil
}
