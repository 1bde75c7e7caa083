package constraints

import (
	"fmt"

	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/validation"
)

// ConstrainedProperties is an ordered map of property name to constrained
// property. It is built once by the evaluator and only read afterwards.
type ConstrainedProperties struct {
	names []string
	props map[string]*ConstrainedProperty
}

func newConstrainedProperties() *ConstrainedProperties {
	return &ConstrainedProperties{props: make(map[string]*ConstrainedProperty)}
}

func (p *ConstrainedProperties) Get(name string) (*ConstrainedProperty, bool) {
	cp, ok := p.props[name]
	return cp, ok
}

// Names returns the property names in the order they were constrained.
func (p *ConstrainedProperties) Names() []string {
	return append([]string(nil), p.names...)
}

func (p *ConstrainedProperties) Len() int { return len(p.names) }

// All returns the constrained properties in order.
func (p *ConstrainedProperties) All() []*ConstrainedProperty {
	out := make([]*ConstrainedProperty, 0, len(p.names))
	for _, n := range p.names {
		out = append(out, p.props[n])
	}
	return out
}

func (p *ConstrainedProperties) put(cp *ConstrainedProperty) {
	if _, ok := p.props[cp.PropertyName()]; !ok {
		p.names = append(p.names, cp.PropertyName())
	}
	p.props[cp.PropertyName()] = cp
}

// Assembler turns constraint declarations into constrained properties of
// one class.
type Assembler struct {
	owner    models.DomainClass
	registry *Registry
	messages validation.MessageSource
	logger   *zap.SugaredLogger

	properties *ConstrainedProperties
	shared     map[string]string
	order      int
}

func NewAssembler(owner models.DomainClass, registry *Registry, messages validation.MessageSource, logger *zap.SugaredLogger) *Assembler {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Assembler{
		owner:      owner,
		registry:   registry,
		messages:   messages,
		logger:     helpers.LoggerOrNop(logger),
		properties: newConstrainedProperties(),
		shared:     make(map[string]string),
		order:      1,
	}
}

// Assemble applies defs in order. Declaring a property the class does not
// have is an error.
func (a *Assembler) Assemble(defs ClassConstraints) error {
	for _, pc := range defs {
		if err := a.assembleProperty(pc.Property, pc.Constraints); err != nil {
			return err
		}
	}
	return nil
}

// ConstrainedProperties returns everything assembled so far.
func (a *Assembler) ConstrainedProperties() *ConstrainedProperties { return a.properties }

// SharedConstraint returns the shared constraint referenced by property.
func (a *Assembler) SharedConstraint(property string) (string, bool) {
	ref, ok := a.shared[property]
	return ref, ok
}

func (a *Assembler) assembleProperty(property string, defs ConstraintDefs) error {
	cp, ok := a.properties.Get(property)
	if !ok {
		propertyType, found := a.owner.PropertyType(property)
		if !found {
			return &validation.PropertyError{Owner: a.owner.Name(), Property: property}
		}
		var err error
		cp, err = NewConstrainedProperty(a.owner, property, propertyType, a.registry, a.logger)
		if err != nil {
			return err
		}
		cp.SetMessageSource(a.messages)
		cp.SetOrder(a.order)
		a.order++
		a.properties.put(cp)
	}

	for _, def := range defs {
		if def.Name == SharedConstraintName {
			if def.Value != nil {
				a.shared[property] = fmt.Sprint(def.Value)
			}
			continue
		}
		if err := a.addConstraint(cp, def.Name, def.Value); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) addConstraint(cp *ConstrainedProperty, name string, value any) error {
	supported, err := cp.SupportsConstraint(name)
	if err != nil {
		return err
	}
	switch {
	case supported:
		return cp.ApplyConstraint(name, value)
	case a.registry.Has(name):
		a.logger.Warnw("Property type doesn't support constraint, it will not be checked during validation",
			"class", a.owner.Name(), "property", cp.PropertyName(), "type", cp.PropertyType().String(), "constraint", name)
	default:
		a.logger.Debugw("Retaining unknown constraint as meta constraint",
			"class", a.owner.Name(), "property", cp.PropertyName(), "constraint", name)
		cp.AddMetaConstraint(name, value)
	}
	return nil
}
