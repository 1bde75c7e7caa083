package constraints

import (
	"fmt"
	"sort"
	"sync"

	"griffon/src/models"
)

// Factory creates a fresh, unbound constraint.
type Factory func() Constraint

// Registry maps constraint names to the factories able to build them. Several
// factories may be registered under one name; the first one producing a
// constraint that is valid for the target property wins.
type Registry struct {
	mu        sync.RWMutex
	factories map[string][]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string][]Factory)}
}

// NewDefaultRegistry returns a registry holding every built-in constraint.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, f := range map[string]Factory{
		BlankConstraintName:      NewBlankConstraint,
		CreditCardConstraintName: NewCreditCardConstraint,
		DateConstraintName:       NewDateConstraint,
		EmailConstraintName:      NewEmailConstraint,
		InListConstraintName:     NewInListConstraint,
		MatchesConstraintName:    NewMatchesConstraint,
		MaxConstraintName:        NewMaxConstraint,
		MaxSizeConstraintName:    NewMaxSizeConstraint,
		MinConstraintName:        NewMinConstraint,
		MinSizeConstraintName:    NewMinSizeConstraint,
		NotEqualConstraintName:   NewNotEqualConstraint,
		NullableConstraintName:   NewNullableConstraint,
		RangeConstraintName:      NewRangeConstraint,
		ScaleConstraintName:      NewScaleConstraint,
		SizeConstraintName:       NewSizeConstraint,
		URLConstraintName:        NewURLConstraint,
		UniqueConstraintName:     NewUniqueConstraint,
	} {
		r.factories[name] = []Factory{f}
	}
	return r
}

// Register adds a factory for name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("constraint name cannot be blank")
	}
	if f == nil {
		return fmt.Errorf("constraint [%s]: factory cannot be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = append(r.factories[name], f)
	return nil
}

// Replace drops every factory registered for name and registers f.
func (r *Registry) Replace(name string, f Factory) error {
	r.Remove(name)
	return r.Register(name, f)
}

// Remove drops every factory registered for name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

// Has reports whether at least one factory is registered for name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories[name]) > 0
}

// Names returns the registered constraint names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name, fs := range r.factories {
		if len(fs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// instantiate builds a constraint for name bound to owner.property. With
// checkValid set, candidates whose IsValid is false are skipped and nil is
// returned when none qualifies.
func (r *Registry) instantiate(name string, owner models.DomainClass, property string, checkValid bool) (c Constraint, err error) {
	r.mu.RLock()
	candidates := append([]Factory(nil), r.factories[name]...)
	r.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			c, err = nil, fmt.Errorf("instantiating constraint [%s]: %v", name, p)
		}
	}()
	for _, f := range candidates {
		candidate := f()
		if candidate == nil {
			continue
		}
		candidate.Bind(owner, property)
		if !checkValid || candidate.IsValid() {
			return candidate, nil
		}
	}
	return nil, nil
}
