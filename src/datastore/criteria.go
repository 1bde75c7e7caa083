package datastore

import (
	"fmt"
	"strings"
)

// Operator is the operator of a criterion.
type Operator int

const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpLike
	OpNotLike
	OpIsNull
	OpIsNotNull
	OpAnd
	OpOr
)

var operatorSymbols = map[Operator]string{
	OpEqual:              "==",
	OpNotEqual:           "!=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpLike:               "LIKE",
	OpNotLike:            "NOT LIKE",
	OpIsNull:             "IS NULL",
	OpIsNotNull:          "IS NOT NULL",
	OpAnd:                "AND",
	OpOr:                 "OR",
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Criterion is a query expression evaluated against entities.
type Criterion interface {
	fmt.Stringer
	criterion()
}

// BinaryExpression compares a property with a value.
type BinaryExpression struct {
	Property string
	Operator Operator
	Value    any
}

// PropertyExpression compares two properties of the same entity.
type PropertyExpression struct {
	Property      string
	Operator      Operator
	OtherProperty string
}

// UnaryExpression tests a property for nil.
type UnaryExpression struct {
	Property string
	Operator Operator
}

// CompositeCriterion joins criteria with AND or OR.
type CompositeCriterion struct {
	Operator Operator
	Criteria []Criterion
}

func (*BinaryExpression) criterion()   {}
func (*PropertyExpression) criterion() {}
func (*UnaryExpression) criterion()    {}
func (*CompositeCriterion) criterion() {}

func (e *BinaryExpression) String() string {
	if s, ok := e.Value.(string); ok {
		return fmt.Sprintf("%s %s %q", e.Property, e.Operator, s)
	}
	return fmt.Sprintf("%s %s %v", e.Property, e.Operator, e.Value)
}

func (e *PropertyExpression) String() string {
	return fmt.Sprintf("%s %s %s", e.Property, e.Operator, e.OtherProperty)
}

func (e *UnaryExpression) String() string {
	return fmt.Sprintf("%s %s", e.Property, e.Operator)
}

func (c *CompositeCriterion) String() string {
	parts := make([]string, len(c.Criteria))
	for i, sub := range c.Criteria {
		parts[i] = sub.String()
	}
	return "(" + strings.Join(parts, " "+c.Operator.String()+" ") + ")"
}

func Eq(property string, value any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpEqual, Value: value}
}

func Ne(property string, value any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpNotEqual, Value: value}
}

func Gt(property string, value any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpGreaterThan, Value: value}
}

func Ge(property string, value any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpGreaterThanOrEqual, Value: value}
}

func Lt(property string, value any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpLessThan, Value: value}
}

func Le(property string, value any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpLessThanOrEqual, Value: value}
}

// Like matches string values against a pattern where % stands for any run
// of characters and _ for exactly one.
func Like(property string, pattern any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpLike, Value: pattern}
}

func NotLike(property string, pattern any) *BinaryExpression {
	return &BinaryExpression{Property: property, Operator: OpNotLike, Value: pattern}
}

func EqProperty(property, other string) *PropertyExpression {
	return &PropertyExpression{Property: property, Operator: OpEqual, OtherProperty: other}
}

func NeProperty(property, other string) *PropertyExpression {
	return &PropertyExpression{Property: property, Operator: OpNotEqual, OtherProperty: other}
}

func GtProperty(property, other string) *PropertyExpression {
	return &PropertyExpression{Property: property, Operator: OpGreaterThan, OtherProperty: other}
}

func GeProperty(property, other string) *PropertyExpression {
	return &PropertyExpression{Property: property, Operator: OpGreaterThanOrEqual, OtherProperty: other}
}

func LtProperty(property, other string) *PropertyExpression {
	return &PropertyExpression{Property: property, Operator: OpLessThan, OtherProperty: other}
}

func LeProperty(property, other string) *PropertyExpression {
	return &PropertyExpression{Property: property, Operator: OpLessThanOrEqual, OtherProperty: other}
}

func IsNull(property string) *UnaryExpression {
	return &UnaryExpression{Property: property, Operator: OpIsNull}
}

func IsNotNull(property string) *UnaryExpression {
	return &UnaryExpression{Property: property, Operator: OpIsNotNull}
}

func And(criteria ...Criterion) *CompositeCriterion {
	return &CompositeCriterion{Operator: OpAnd, Criteria: criteria}
}

func Or(criteria ...Criterion) *CompositeCriterion {
	return &CompositeCriterion{Operator: OpOr, Criteria: criteria}
}

var negated = map[Operator]Operator{
	OpEqual:              OpNotEqual,
	OpNotEqual:           OpEqual,
	OpGreaterThan:        OpLessThanOrEqual,
	OpGreaterThanOrEqual: OpLessThan,
	OpLessThan:           OpGreaterThanOrEqual,
	OpLessThanOrEqual:    OpGreaterThan,
	OpLike:               OpNotLike,
	OpNotLike:            OpLike,
	OpIsNull:             OpIsNotNull,
	OpIsNotNull:          OpIsNull,
	OpAnd:                OpOr,
	OpOr:                 OpAnd,
}

// Not returns the negation of c, pushing it down to the leaves.
func Not(c Criterion) Criterion {
	switch e := c.(type) {
	case *BinaryExpression:
		if op, ok := negated[e.Operator]; ok {
			return &BinaryExpression{Property: e.Property, Operator: op, Value: e.Value}
		}
	case *PropertyExpression:
		if op, ok := negated[e.Operator]; ok {
			return &PropertyExpression{Property: e.Property, Operator: op, OtherProperty: e.OtherProperty}
		}
	case *UnaryExpression:
		if op, ok := negated[e.Operator]; ok {
			return &UnaryExpression{Property: e.Property, Operator: op}
		}
	case *CompositeCriterion:
		criteria := make([]Criterion, len(e.Criteria))
		for i, sub := range e.Criteria {
			criteria[i] = Not(sub)
		}
		return &CompositeCriterion{Operator: negated[e.Operator], Criteria: criteria}
	}
	return c
}
