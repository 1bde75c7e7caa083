package constraints

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"griffon/src/validation"
)

// formatValidate checks string formats shared by the email, url,
// creditCard and date constraints.
var formatValidate = validator.New()

// formatConstraint is a boolean constraint that checks a string against a
// validator tag.
type formatConstraint struct {
	baseConstraint
	enabled bool
	tag     string
	code    string
	msgCode string
}

func (c *formatConstraint) Supports(t reflect.Type) bool { return isStringType(t) }

func (c *formatConstraint) SetParameter(param any) error {
	b, err := boolParameter(&c.baseConstraint, param)
	if err != nil {
		return err
	}
	c.enabled = b
	c.param = b
	return nil
}

func (c *formatConstraint) Enabled() bool { return c.enabled }

func (c *formatConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) || !c.enabled {
		return
	}
	s := fmt.Sprint(value)
	if formatValidate.Var(s, c.tag) != nil {
		c.reject(value, errs, c.msgCode, []string{c.code}, c.args(value))
	}
}

// EmailConstraint rejects strings that are not e-mail addresses.
type EmailConstraint struct{ formatConstraint }

func NewEmailConstraint() Constraint {
	return &EmailConstraint{formatConstraint{
		baseConstraint: baseConstraint{name: EmailConstraintName},
		tag:            "email",
		code:           EmailConstraintName + InvalidSuffix,
		msgCode:        validation.DefaultInvalidEmailMessageCode,
	}}
}

// URLConstraint rejects strings that are not absolute URLs.
type URLConstraint struct{ formatConstraint }

func NewURLConstraint() Constraint {
	return &URLConstraint{formatConstraint{
		baseConstraint: baseConstraint{name: URLConstraintName},
		tag:            "url",
		code:           URLConstraintName + InvalidSuffix,
		msgCode:        validation.DefaultInvalidURLMessageCode,
	}}
}

// CreditCardConstraint rejects strings that fail the Luhn check.
type CreditCardConstraint struct{ formatConstraint }

func NewCreditCardConstraint() Constraint {
	return &CreditCardConstraint{formatConstraint{
		baseConstraint: baseConstraint{name: CreditCardConstraintName},
		tag:            "credit_card",
		code:           CreditCardConstraintName + InvalidSuffix,
		msgCode:        validation.DefaultInvalidCreditCardMessageCode,
	}}
}

// MatchesConstraint rejects strings that do not fully match a regular
// expression.
type MatchesConstraint struct {
	baseConstraint
	regex   string
	pattern *regexp.Regexp
}

func NewMatchesConstraint() Constraint {
	return &MatchesConstraint{baseConstraint: baseConstraint{name: MatchesConstraintName}}
}

func (c *MatchesConstraint) Supports(t reflect.Type) bool { return isStringType(t) }

func (c *MatchesConstraint) SetParameter(param any) error {
	s, ok := param.(string)
	if !ok {
		return c.parameterError("a string value")
	}
	re, err := regexp.Compile("^(?:" + s + ")$")
	if err != nil {
		return fmt.Errorf("constraint [%s] of property [%s]: %w", c.name, c.property, err)
	}
	c.regex = s
	c.pattern = re
	c.param = s
	return nil
}

// Regex returns the expression as it was given.
func (c *MatchesConstraint) Regex() string { return c.regex }

func (c *MatchesConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) {
		return
	}
	if !c.pattern.MatchString(fmt.Sprint(value)) {
		c.reject(value, errs, validation.DefaultDoesntMatchMessageCode,
			[]string{MatchesConstraintName + InvalidSuffix}, c.args(value, c.regex))
	}
}

// DateConstraint rejects strings that cannot be parsed with a time layout.
// A parameter of true means time.RFC3339.
type DateConstraint struct {
	baseConstraint
	layout string
}

func NewDateConstraint() Constraint {
	return &DateConstraint{baseConstraint: baseConstraint{name: DateConstraintName}}
}

func (c *DateConstraint) Supports(t reflect.Type) bool { return isStringType(t) }

func (c *DateConstraint) SetParameter(param any) error {
	switch p := param.(type) {
	case bool:
		if !p {
			c.layout = ""
			c.param = p
			return nil
		}
		c.layout = time.RFC3339
	case string:
		if p == "" || strings.ContainsAny(p, ",|") {
			return c.parameterError("a time layout without ',' or '|'")
		}
		c.layout = p
	default:
		return c.parameterError("a boolean or a time layout")
	}
	c.param = param
	return nil
}

// Layout returns the time layout values are parsed with.
func (c *DateConstraint) Layout() string { return c.layout }

func (c *DateConstraint) Enabled() bool { return c.layout != "" }

func (c *DateConstraint) Validate(target, value any, errs validation.Errors) {
	if c.skip(value) || c.layout == "" {
		return
	}
	if formatValidate.Var(fmt.Sprint(value), "datetime="+c.layout) != nil {
		c.reject(value, errs, validation.DefaultInvalidDateMessageCode,
			[]string{DateConstraintName + InvalidSuffix}, c.args(value, c.layout))
	}
}
