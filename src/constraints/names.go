package constraints

// Names of the built-in constraints.
const (
	BlankConstraintName      = "blank"
	CreditCardConstraintName = "creditCard"
	DateConstraintName       = "date"
	EmailConstraintName      = "email"
	InListConstraintName     = "inList"
	MatchesConstraintName    = "matches"
	MaxConstraintName        = "max"
	MaxSizeConstraintName    = "maxSize"
	MinConstraintName        = "min"
	MinSizeConstraintName    = "minSize"
	NotEqualConstraintName   = "notEqual"
	NullableConstraintName   = "nullable"
	RangeConstraintName      = "range"
	ScaleConstraintName      = "scale"
	SizeConstraintName       = "size"
	URLConstraintName        = "url"
	UniqueConstraintName     = "unique"

	// SharedConstraintName references a named entry of the shared
	// constraints configuration.
	SharedConstraintName = "shared"
)

// Suffixes and prefixes of rejection codes.
const (
	InvalidSuffix  = ".invalid"
	ExceededSuffix = ".exceeded"
	NotMetSuffix   = ".notmet"
	TooBigSuffix   = ".toobig"
	TooLongSuffix  = ".toolong"
	TooSmallSuffix = ".toosmall"
	TooShortSuffix = ".tooshort"
	NotPrefix      = "not."
)
