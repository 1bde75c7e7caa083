package datastore

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"griffon/src/helpers"
	"griffon/src/models"
)

/*
	Dynamic finders turn a method style expression into a criterion:

		LoginAndAgeGreaterThan("alice", 30)   login == "alice" AND age > 30
		NickIsNull()                          nick IS NULL
		LoginNotLike("tmp%")                  login NOT LIKE "tmp%"
		AgeLessThanOrBalanceGreaterThanEquals(18, 100.0)

	An expression joins clauses with And or Or, but never both. Each clause is a
	capitalized property name, an optional Not and an optional comparator
	suffix. Arguments are consumed left to right and converted to the property
	type.
*/

var finderPrefixes = []string{"findAllBy", "findBy", "countBy"}

var finderJoiners = regexp.MustCompile(`(And|Or)\p{Lu}`)

type finderClause struct {
	suffix   string
	args     int
	build    func(property string, args []any) Criterion
	nullable bool
}

// Longest suffixes first so LessThanEquals wins over LessThan.
var finderClauses = []finderClause{
	{suffix: "LessThanEquals", args: 1, build: func(p string, a []any) Criterion { return Le(p, a[0]) }},
	{suffix: "LessThan", args: 1, build: func(p string, a []any) Criterion { return Lt(p, a[0]) }},
	{suffix: "GreaterThanEquals", args: 1, build: func(p string, a []any) Criterion { return Ge(p, a[0]) }},
	{suffix: "GreaterThan", args: 1, build: func(p string, a []any) Criterion { return Gt(p, a[0]) }},
	{suffix: "Like", args: 1, build: func(p string, a []any) Criterion { return Like(p, a[0]) }},
	{suffix: "IsNotNull", args: 0, build: func(p string, _ []any) Criterion { return IsNotNull(p) }},
	{suffix: "IsNull", args: 0, build: func(p string, _ []any) Criterion { return IsNull(p) }},
	{suffix: "NotEqual", args: 1, nullable: true, build: func(p string, a []any) Criterion {
		if a[0] == nil {
			return IsNotNull(p)
		}
		return Ne(p, a[0])
	}},
	{suffix: "Equal", args: 1, nullable: true, build: equalCriterion},
	{suffix: "", args: 1, nullable: true, build: equalCriterion},
}

func equalCriterion(p string, a []any) Criterion {
	if a[0] == nil {
		return IsNull(p)
	}
	return Eq(p, a[0])
}

// ParseFinder builds the criterion of a finder expression for class. Extra
// arguments are an error.
func ParseFinder(class models.DomainClass, expression string, args ...any) (Criterion, error) {
	for _, prefix := range finderPrefixes {
		if strings.HasPrefix(expression, prefix) {
			expression = expression[len(prefix):]
			break
		}
	}
	if expression == "" {
		return nil, fmt.Errorf("empty finder expression")
	}

	parts, joiner, err := splitFinder(expression)
	if err != nil {
		return nil, err
	}

	criteria := make([]Criterion, 0, len(parts))
	cursor := 0
	for _, part := range parts {
		c, used, err := parseFinderClause(class, part, args[cursor:])
		if err != nil {
			return nil, fmt.Errorf("finder %s: %w", expression, err)
		}
		cursor += used
		criteria = append(criteria, c)
	}
	if cursor != len(args) {
		return nil, fmt.Errorf("finder %s: expects %d arguments, got %d", expression, cursor, len(args))
	}

	if len(criteria) == 1 {
		return criteria[0], nil
	}
	if joiner == "Or" {
		return Or(criteria...), nil
	}
	return And(criteria...), nil
}

// splitFinder cuts expression at And/Or joiners followed by an upper case
// letter.
func splitFinder(expression string) ([]string, string, error) {
	var parts []string
	joiner := ""
	start := 0
	for _, loc := range finderJoiners.FindAllStringSubmatchIndex(expression, -1) {
		if loc[0] == 0 {
			continue
		}
		j := expression[loc[2]:loc[3]]
		if joiner != "" && joiner != j {
			return nil, "", fmt.Errorf("finder %s mixes And and Or", expression)
		}
		joiner = j
		parts = append(parts, expression[start:loc[0]])
		start = loc[3]
	}
	parts = append(parts, expression[start:])
	return parts, joiner, nil
}

func parseFinderClause(class models.DomainClass, part string, args []any) (Criterion, int, error) {
	for _, clause := range finderClauses {
		if !strings.HasSuffix(part, clause.suffix) {
			continue
		}
		name := strings.TrimSuffix(part, clause.suffix)
		negate := false
		if clause.suffix != "NotEqual" && strings.HasSuffix(name, "Not") && len(name) > 3 {
			name = strings.TrimSuffix(name, "Not")
			negate = true
		}
		if name == "" {
			continue
		}
		property := uncapitalize(name)
		propertyType, ok := class.PropertyType(property)
		if !ok {
			return nil, 0, fmt.Errorf("property %s does not exist for method expression '%s'", property, part)
		}
		if len(args) < clause.args {
			return nil, 0, fmt.Errorf("method expression '%s' requires %d arguments", part, clause.args)
		}

		converted := make([]any, clause.args)
		for i := 0; i < clause.args; i++ {
			v := args[i]
			if v == nil {
				if !clause.nullable {
					return nil, 0, fmt.Errorf("method expression '%s' does not accept null", part)
				}
				continue
			}
			if clause.suffix != "Like" {
				c, err := helpers.Coerce(v, propertyType)
				if err != nil {
					return nil, 0, fmt.Errorf("cannot convert value %v of property '%s': %w", v, property, err)
				}
				v = c
			}
			converted[i] = v
		}

		c := clause.build(property, converted)
		if negate {
			c = Not(c)
		}
		return c, clause.args, nil
	}
	return nil, 0, fmt.Errorf("cannot parse method expression '%s'", part)
}

func uncapitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

// FindBy returns the first row matching a finder expression.
func (h *DomainHandler) FindBy(class models.DomainClass, expression string, args ...any) (any, error) {
	c, err := ParseFinder(class, expression, args...)
	if err != nil {
		return nil, err
	}
	return h.Find(class, c)
}

// FindAllBy returns every row matching a finder expression.
func (h *DomainHandler) FindAllBy(class models.DomainClass, expression string, opts Options, args ...any) ([]any, error) {
	c, err := ParseFinder(class, expression, args...)
	if err != nil {
		return nil, err
	}
	return h.FindAll(class, c, opts)
}

// CountBy counts the rows matching a finder expression.
func (h *DomainHandler) CountBy(class models.DomainClass, expression string, args ...any) (int, error) {
	entities, err := h.FindAllBy(class, expression, DefaultOptions(), args...)
	if err != nil {
		return 0, err
	}
	return len(entities), nil
}
