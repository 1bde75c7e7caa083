package datastore

import (
	"fmt"
	"strconv"
	"strings"

	"griffon/src/helpers"
)

/*
	Where clauses are a small textual form of the criteria in this package, used
	by the command line and by DomainHandler.FindWhere callers that hold a query
	as a string:

		age > 30 AND (name == "bob" OR name LIKE "al%")
		nick IS NULL
		email IS NOT NULL AND login NOT LIKE "tmp_%"

	AND binds tighter than OR. Values are quoted strings, integers, floats,
	true/false or null. Comparing with null turns == into IS NULL and != into
	IS NOT NULL.
*/

// tokenizeWhereClause breaks a where clause into tokens while preserving
// quoted strings. Parentheses are tokens of their own.
func tokenizeWhereClause(whereClause string) ([]string, error) {
	var tokens []string
	var currentToken strings.Builder
	inQuote := false

	flush := func() {
		if currentToken.Len() > 0 {
			tokens = append(tokens, currentToken.String())
			currentToken.Reset()
		}
	}

	for i := 0; i < len(whereClause); i++ {
		ch := whereClause[i]

		if ch == '"' {
			currentToken.WriteByte(ch)
			inQuote = !inQuote
			continue
		}

		if inQuote {
			if ch == '\\' && i+1 < len(whereClause) {
				i++
				currentToken.WriteByte(whereClause[i])
				continue
			}
			currentToken.WriteByte(ch)
			continue
		}

		switch ch {
		case '(', ')':
			flush()
			tokens = append(tokens, string(ch))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			currentToken.WriteByte(ch)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unterminated string in where clause")
	}
	flush()
	return tokens, nil
}

// ParseWhereClause parses a where clause into a criterion. A leading WHERE
// keyword is ignored.
func ParseWhereClause(whereClause string) (Criterion, error) {
	whereClause = strings.TrimSpace(whereClause)
	if len(whereClause) >= 5 && strings.EqualFold(whereClause[:5], "WHERE") {
		whereClause = strings.TrimSpace(whereClause[5:])
	}

	tokens, err := tokenizeWhereClause(whereClause)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty where clause")
	}

	p := &whereParser{tokens: tokens}
	c, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected tokens after parsing: %v", p.tokens[p.pos:])
	}
	return c, nil
}

type whereParser struct {
	tokens []string
	pos    int
}

func (p *whereParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *whereParser) keyword(words ...string) bool {
	if p.pos+len(words) > len(p.tokens) {
		return false
	}
	for i, w := range words {
		if !strings.EqualFold(p.tokens[p.pos+i], w) {
			return false
		}
	}
	p.pos += len(words)
	return true
}

func (p *whereParser) parseOr() (Criterion, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	criteria := []Criterion{left}
	for p.keyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, right)
	}
	if len(criteria) == 1 {
		return left, nil
	}
	return Or(criteria...), nil
}

func (p *whereParser) parseAnd() (Criterion, error) {
	left, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	criteria := []Criterion{left}
	for p.keyword("AND") {
		right, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, right)
	}
	if len(criteria) == 1 {
		return left, nil
	}
	return And(criteria...), nil
}

// parseGroup parses a parenthesised group or a single condition.
func (p *whereParser) parseGroup() (Criterion, error) {
	if p.peek() == "(" {
		p.pos++
		c, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return c, nil
	}
	return p.parseCondition()
}

// parseCondition parses field operator value, or field IS [NOT] NULL.
func (p *whereParser) parseCondition() (Criterion, error) {
	field := p.peek()
	if field == "" || field == "(" || field == ")" || strings.HasPrefix(field, "\"") {
		return nil, fmt.Errorf("expected a property name at position %d", p.pos)
	}
	p.pos++

	switch {
	case p.keyword("IS", "NOT", "NULL"):
		return IsNotNull(field), nil
	case p.keyword("IS", "NULL"):
		return IsNull(field), nil
	}

	var operator Operator
	switch {
	case p.keyword("NOT", "LIKE"):
		operator = OpNotLike
	case p.keyword("LIKE"):
		operator = OpLike
	default:
		op, ok := parseOperator(p.peek())
		if !ok {
			return nil, fmt.Errorf("invalid operator: %s", p.peek())
		}
		operator = op
		p.pos++
	}

	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("missing value for %s %s", field, operator)
	}
	value := parseValue(p.tokens[p.pos])
	p.pos++

	if value == nil {
		switch operator {
		case OpEqual:
			return IsNull(field), nil
		case OpNotEqual:
			return IsNotNull(field), nil
		}
		return nil, fmt.Errorf("null cannot be used with %s", operator)
	}
	return &BinaryExpression{Property: field, Operator: operator, Value: value}, nil
}

func parseOperator(op string) (Operator, bool) {
	switch op {
	case "==", "=":
		return OpEqual, true
	case "!=", "<>":
		return OpNotEqual, true
	case ">":
		return OpGreaterThan, true
	case ">=":
		return OpGreaterThanOrEqual, true
	case "<":
		return OpLessThan, true
	case "<=":
		return OpLessThanOrEqual, true
	}
	return 0, false
}

// parseValue converts a value token into a string, bool, int64, float64 or
// nil. Unquoted words that are none of these are taken as strings.
func parseValue(valueToken string) any {
	if unquoted := helpers.StripQuotes(valueToken); unquoted != valueToken {
		return unquoted
	}

	switch strings.ToLower(valueToken) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if strings.ContainsAny(valueToken, ".eE") {
		if f, err := strconv.ParseFloat(valueToken, 64); err == nil {
			return f
		}
	} else if i, err := strconv.ParseInt(valueToken, 10, 64); err == nil {
		return i
	}

	return valueToken
}
