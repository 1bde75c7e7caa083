package constraints

import (
	"fmt"

	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/validation"
)

// Evaluator builds the constrained properties of domain classes.
type Evaluator struct {
	registry *Registry
	messages validation.MessageSource
	defaults DefaultConstraints
	logger   *zap.SugaredLogger
}

func NewEvaluator(registry *Registry, messages validation.MessageSource, defaults DefaultConstraints, logger *zap.SugaredLogger) *Evaluator {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Evaluator{
		registry: registry,
		messages: messages,
		defaults: defaults,
		logger:   helpers.LoggerOrNop(logger),
	}
}

func (e *Evaluator) Registry() *Registry { return e.registry }

// Evaluate assembles defs for class, then constrains every remaining
// persistent property. Global default constraints are applied where they
// are not already set, properties without a nullable constraint become
// non-nullable (collections and maps stay nullable), and shared constraint
// references are resolved last.
func (e *Evaluator) Evaluate(class models.DomainClass, defs ClassConstraints) (*ConstrainedProperties, error) {
	if class == nil {
		return nil, fmt.Errorf("evaluate constraints: class cannot be nil")
	}

	assembler := NewAssembler(class, e.registry, e.messages, e.logger)
	if err := assembler.Assemble(defs); err != nil {
		return nil, fmt.Errorf("evaluate constraints of %s: %w", class.Name(), err)
	}
	if len(defs) == 0 {
		e.logger.Debugw("User-defined constraints not found on class", "class", class.Name())
	}

	properties := assembler.ConstrainedProperties()
	for _, p := range class.PersistentProperties() {
		name := p.Name()
		if !models.IsConstrainable(name) {
			continue
		}
		cp, ok := properties.Get(name)
		if !ok {
			var err error
			cp, err = NewConstrainedProperty(class, name, p.Type(), e.registry, e.logger)
			if err != nil {
				return nil, err
			}
			cp.SetOrder(properties.Len() + 1)
			cp.SetMessageSource(e.messages)
			properties.put(cp)
		}
		if err := e.applyGlobalConstraints(cp); err != nil {
			return nil, err
		}
	}

	for _, cp := range properties.All() {
		if err := e.applyDefaultNullable(cp); err != nil {
			return nil, err
		}
	}

	if err := e.applySharedConstraints(assembler, properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (e *Evaluator) applyGlobalConstraints(cp *ConstrainedProperty) error {
	for _, def := range e.defaults[GlobalConstraintsKey] {
		if cp.HasAppliedConstraint(def.Name) {
			continue
		}
		supported, err := cp.SupportsConstraint(def.Name)
		if err != nil {
			return err
		}
		if !supported {
			continue
		}
		if def.Name == NullableConstraintName && !models.IsConstrainable(cp.PropertyName()) {
			continue
		}
		if err := cp.ApplyConstraint(def.Name, def.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) applyDefaultNullable(cp *ConstrainedProperty) error {
	if cp.HasAppliedConstraint(NullableConstraintName) || !models.IsConstrainable(cp.PropertyName()) {
		return nil
	}
	return cp.ApplyConstraint(NullableConstraintName, models.IsCollectionType(cp.PropertyType()))
}

func (e *Evaluator) applySharedConstraints(assembler *Assembler, properties *ConstrainedProperties) error {
	for _, cp := range properties.All() {
		ref, ok := assembler.SharedConstraint(cp.PropertyName())
		if !ok {
			continue
		}
		defs, found := e.defaults[ref]
		if !found || ref == GlobalConstraintsKey {
			return fmt.Errorf("property [%s.%s] references shared constraint [%s], which doesn't exist",
				cp.Owner().Name(), cp.PropertyName(), ref)
		}
		for _, def := range defs {
			if err := cp.ApplyConstraint(def.Name, def.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
