package constraints

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConstraintDef is a single constraint declaration: a name and the
// parameter to apply it with.
type ConstraintDef struct {
	Name  string
	Value any
}

// ConstraintDefs is an ordered list of constraint declarations. In YAML it
// is written either as a list of single-key maps or as one map; both keep
// document order.
//
//	name: [ { blank: false }, { size: [3, 10] } ]
//	name: { blank: false, size: [3, 10] }
type ConstraintDefs []ConstraintDef

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *ConstraintDefs) UnmarshalYAML(node *yaml.Node) error {
	var defs ConstraintDefs
	switch node.Kind {
	case yaml.MappingNode:
		pairs, err := decodePairs(node)
		if err != nil {
			return err
		}
		defs = pairs
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: constraint must be a single-key map", item.Line)
			}
			pairs, err := decodePairs(item)
			if err != nil {
				return err
			}
			defs = append(defs, pairs...)
		}
	default:
		return fmt.Errorf("line %d: constraints must be a list or a map", node.Line)
	}
	*d = defs
	return nil
}

func decodePairs(node *yaml.Node) (ConstraintDefs, error) {
	defs := make(ConstraintDefs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: constraint [%s]: %w", node.Content[i].Line, node.Content[i].Value, err)
		}
		defs = append(defs, ConstraintDef{Name: node.Content[i].Value, Value: value})
	}
	return defs, nil
}

// PropertyConstraints are the constraints declared for one property.
type PropertyConstraints struct {
	Property    string
	Constraints ConstraintDefs
}

// ClassConstraints are the constraint declarations of a class, in
// declaration order.
type ClassConstraints []PropertyConstraints

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ClassConstraints) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: class constraints must be a map of property to constraints", node.Line)
	}
	out := make(ClassConstraints, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var defs ConstraintDefs
		if err := node.Content[i+1].Decode(&defs); err != nil {
			return fmt.Errorf("property [%s]: %w", node.Content[i].Value, err)
		}
		out = append(out, PropertyConstraints{Property: node.Content[i].Value, Constraints: defs})
	}
	*c = out
	return nil
}

// Get returns the constraints declared for property.
func (c ClassConstraints) Get(property string) (ConstraintDefs, bool) {
	for _, pc := range c {
		if pc.Property == property {
			return pc.Constraints, true
		}
	}
	return nil, false
}

// DefaultConstraints holds constraints configured outside of a class. The
// entry under GlobalConstraintsKey applies to every property; any other
// entry can be referenced with the shared constraint.
type DefaultConstraints map[string]ConstraintDefs

// GlobalConstraintsKey names the default constraints applied to every
// property.
const GlobalConstraintsKey = "*"
