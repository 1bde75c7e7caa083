package validation

// Message codes of the built-in constraint messages.
const (
	DefaultBlankMessageCode             = "default.blank.message"
	DefaultDoesntMatchMessageCode       = "default.doesnt.match.message"
	DefaultInvalidCreditCardMessageCode = "default.invalid.creditCard.message"
	DefaultInvalidEmailMessageCode      = "default.invalid.email.message"
	DefaultInvalidMaxMessageCode        = "default.invalid.max.message"
	DefaultInvalidMaxSizeMessageCode    = "default.invalid.max.size.message"
	DefaultInvalidMinMessageCode        = "default.invalid.min.message"
	DefaultInvalidMinSizeMessageCode    = "default.invalid.min.size.message"
	DefaultInvalidRangeMessageCode      = "default.invalid.range.message"
	DefaultInvalidSizeMessageCode       = "default.invalid.size.message"
	DefaultInvalidURLMessageCode        = "default.invalid.url.message"
	DefaultNotEqualMessageCode          = "default.not.equal.message"
	DefaultNotInListMessageCode         = "default.not.inlist.message"
	DefaultNullMessageCode              = "default.null.message"
	DefaultInvalidDateMessageCode       = "default.invalid.date.message"
	DefaultNotUniqueMessageCode         = "default.not.unique.message"
)

// DefaultMessages holds the fallback text for every built-in constraint.
// Arguments are {0} property, {1} class, {2} rejected value and then the
// constraint parameters.
var DefaultMessages = map[string]string{
	DefaultBlankMessageCode:             "Property [{0}] of class [{1}] cannot be blank",
	DefaultDoesntMatchMessageCode:       "Property [{0}] of class [{1}] with value [{2}] does not match the required pattern [{3}]",
	DefaultInvalidCreditCardMessageCode: "Property [{0}] of class [{1}] with value [{2}] is not a valid credit card number",
	DefaultInvalidEmailMessageCode:      "Property [{0}] of class [{1}] with value [{2}] is not a valid e-mail address",
	DefaultInvalidMaxMessageCode:        "Property [{0}] of class [{1}] with value [{2}] exceeds maximum value [{3}]",
	DefaultInvalidMaxSizeMessageCode:    "Property [{0}] of class [{1}] with value [{2}] exceeds the maximum size of [{3}]",
	DefaultInvalidMinMessageCode:        "Property [{0}] of class [{1}] with value [{2}] is less than minimum value [{3}]",
	DefaultInvalidMinSizeMessageCode:    "Property [{0}] of class [{1}] with value [{2}] is less than the minimum size of [{3}]",
	DefaultInvalidRangeMessageCode:      "Property [{0}] of class [{1}] with value [{2}] does not fall within the valid range from [{3}] to [{4}]",
	DefaultInvalidSizeMessageCode:       "Property [{0}] of class [{1}] with value [{2}] does not fall within the valid size range from [{3}] to [{4}]",
	DefaultInvalidURLMessageCode:        "Property [{0}] of class [{1}] with value [{2}] is not a valid URL",
	DefaultNotEqualMessageCode:          "Property [{0}] of class [{1}] with value [{2}] cannot equal [{3}]",
	DefaultNotInListMessageCode:         "Property [{0}] of class [{1}] with value [{2}] is not contained within the list [{3}]",
	DefaultNullMessageCode:              "Property [{0}] of class [{1}] cannot be null",
	DefaultInvalidDateMessageCode:       "Property [{0}] of class [{1}] with value [{2}] must be a valid date",
	DefaultNotUniqueMessageCode:         "Property [{0}] of class [{1}] with value [{2}] must be unique",
}

// NewDefaultMessageSource returns a source preloaded with DefaultMessages.
func NewDefaultMessageSource() *MapMessageSource {
	return NewMapMessageSource(DefaultMessages)
}
