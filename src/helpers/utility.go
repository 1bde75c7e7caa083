package helpers

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GenerateUUID returns a random identifier used for datastore and error sink ids.
func GenerateUUID() string {
	return uuid.New().String()
}

// StripQuotes removes one pair of matching double or single quotes.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// PropertyName turns a type or field name into its lower camel case form,
// e.g. "Person" -> "person", "URL" -> "url", "HomePage" -> "homePage".
func PropertyName(name string) string {
	if name == "" {
		return name
	}
	// strip a package qualifier
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	runes := []rune(name)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return name
	case upper == 1 || upper == len(runes):
		// "Person" or "URL"
		for i := 0; i < upper; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	default:
		// "HTTPServer" -> "httpServer"
		for i := 0; i < upper-1; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	return string(runes)
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
