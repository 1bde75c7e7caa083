package models

import (
	"reflect"
)

// Names of the standard domain properties.
const (
	IdentityProperty    = "id"
	VersionProperty     = "version"
	DateCreatedProperty = "dateCreated"
	LastUpdatedProperty = "lastUpdated"
	ErrorsProperty      = "errors"
)

// DomainProperty describes one property of a domain class.
type DomainProperty interface {
	Name() string

	// Type is the property type. Pointer fields report their element type.
	Type() reflect.Type

	IsIdentity() bool

	// IsPersistent is true for every property except the identity.
	IsPersistent() bool

	// Value reads the property from entity. It returns nil for nil pointers,
	// nil collections and entities that are not instances of the class.
	Value(entity any) any

	// SetValue writes v into entity, converting numeric values as needed.
	SetValue(entity any, v any) error
}

// DomainClass is the metadata the validation and persistence layers need
// about a type of entity.
type DomainClass interface {
	// Name is the class name, e.g. "Person".
	Name() string

	// ShortName is the class name as a property name, e.g. "person".
	ShortName() string

	// Type is the struct type of the entities, Record for schema classes.
	Type() reflect.Type

	// New returns a fresh, empty entity.
	New() any

	IsInstance(v any) bool

	Properties() []DomainProperty
	PersistentProperties() []DomainProperty
	Property(name string) (DomainProperty, bool)
	PropertyType(name string) (reflect.Type, bool)

	// Identity returns the identity property, or nil if the class has none.
	Identity() DomainProperty
	IdentityOf(entity any) (int64, error)
	SetIdentity(entity any, id int64) error

	ToMap(entity any) map[string]any
	FromMap(values map[string]any) (any, error)
}

// IsConstrainable reports whether constraints may be declared on the named
// property. Standard properties never carry constraints.
func IsConstrainable(name string) bool {
	switch name {
	case IdentityProperty, VersionProperty, DateCreatedProperty, LastUpdatedProperty, ErrorsProperty:
		return false
	}
	return true
}

// IsCollectionType reports whether t is a slice, array or map type.
func IsCollectionType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// PropertyTypes returns a name to type map for every property of class.
func PropertyTypes(class DomainClass) map[string]reflect.Type {
	types := make(map[string]reflect.Type)
	for _, p := range class.Properties() {
		types[p.Name()] = p.Type()
	}
	return types
}
