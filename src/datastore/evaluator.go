package datastore

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/models"
)

// CriterionEvaluator decides whether an entity satisfies a criterion.
type CriterionEvaluator interface {
	Eval(class models.DomainClass, entity any, c Criterion) bool
}

// DefaultCriterionEvaluator evaluates the criteria built by this package.
// Comparisons that cannot be made, such as a string against a number, do not
// match.
type DefaultCriterionEvaluator struct {
	logger   *zap.SugaredLogger
	patterns sync.Map // like pattern -> *regexp.Regexp
}

func NewCriterionEvaluator(logger *zap.SugaredLogger) *DefaultCriterionEvaluator {
	return &DefaultCriterionEvaluator{logger: helpers.LoggerOrNop(logger)}
}

func (e *DefaultCriterionEvaluator) Eval(class models.DomainClass, entity any, c Criterion) bool {
	switch expr := c.(type) {
	case nil:
		return true
	case *CompositeCriterion:
		if expr.Operator == OpOr {
			for _, sub := range expr.Criteria {
				if e.Eval(class, entity, sub) {
					return true
				}
			}
			return false
		}
		for _, sub := range expr.Criteria {
			if !e.Eval(class, entity, sub) {
				return false
			}
		}
		return true
	case *UnaryExpression:
		value, ok := propertyValue(class, entity, expr.Property)
		if !ok {
			return false
		}
		if expr.Operator == OpIsNotNull {
			return !helpers.IsNil(value)
		}
		return helpers.IsNil(value)
	case *BinaryExpression:
		value, ok := propertyValue(class, entity, expr.Property)
		if !ok {
			return false
		}
		return e.compare(value, expr.Operator, expr.Value)
	case *PropertyExpression:
		left, ok := propertyValue(class, entity, expr.Property)
		if !ok {
			return false
		}
		right, ok := propertyValue(class, entity, expr.OtherProperty)
		if !ok {
			return false
		}
		return e.compare(left, expr.Operator, right)
	}
	e.logger.Warnw("Unsupported criterion", "criterion", fmt.Sprintf("%T", c))
	return false
}

func (e *DefaultCriterionEvaluator) compare(left any, op Operator, right any) bool {
	switch op {
	case OpEqual:
		return helpers.Equals(left, right)
	case OpNotEqual:
		return !helpers.Equals(left, right)
	case OpLike, OpNotLike:
		s, ok := left.(string)
		if !ok {
			return false
		}
		pattern, ok := right.(string)
		if !ok {
			return false
		}
		matched := e.likePattern(pattern).MatchString(s)
		if op == OpNotLike {
			return !matched
		}
		return matched
	}

	if helpers.IsNil(left) || helpers.IsNil(right) {
		return false
	}
	c, err := helpers.Compare(left, right)
	if err != nil {
		e.logger.Debugw("Values are not comparable", "left", left, "right", right, "error", err)
		return false
	}
	switch op {
	case OpGreaterThan:
		return c > 0
	case OpGreaterThanOrEqual:
		return c >= 0
	case OpLessThan:
		return c < 0
	case OpLessThanOrEqual:
		return c <= 0
	}
	return false
}

func (e *DefaultCriterionEvaluator) likePattern(pattern string) *regexp.Regexp {
	if re, ok := e.patterns.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(likeToRegexp(pattern))
	actual, _ := e.patterns.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

// likeToRegexp translates a LIKE pattern into an anchored regular expression.
func likeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

func propertyValue(class models.DomainClass, entity any, name string) (any, bool) {
	p, ok := class.Property(name)
	if !ok {
		return nil, false
	}
	return p.Value(entity), true
}
