package constraints

import (
	"fmt"
	"reflect"

	"griffon/src/helpers"
)

// Range is an inclusive range of comparable values.
type Range struct {
	From any
	To   any
}

// NewRange returns the range from..to.
func NewRange(from, to any) *Range {
	return &Range{From: from, To: to}
}

// IntRange returns the integer range from..to, as used by size constraints.
func IntRange(from, to int) *Range {
	return &Range{From: from, To: to}
}

// Contains reports whether v lies within the range.
func (r *Range) Contains(v any) bool {
	lo, err := helpers.Compare(v, r.From)
	if err != nil || lo < 0 {
		return false
	}
	hi, err := helpers.Compare(v, r.To)
	return err == nil && hi <= 0
}

func (r *Range) String() string {
	return fmt.Sprintf("%v..%v", r.From, r.To)
}

// toRange accepts a *Range, a Range, a two element list or a map with
// "from" and "to" keys. When elem is a numeric type both bounds are
// converted to it.
func toRange(param any, elem reflect.Type) (*Range, error) {
	var r *Range
	switch p := param.(type) {
	case *Range:
		if p == nil {
			return nil, fmt.Errorf("range cannot be nil")
		}
		r = &Range{From: p.From, To: p.To}
	case Range:
		r = &Range{From: p.From, To: p.To}
	case map[string]any:
		r = &Range{From: p["from"], To: p["to"]}
	default:
		rv := reflect.ValueOf(param)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() != 2 {
			return nil, fmt.Errorf("expected a range, got %T", param)
		}
		r = &Range{From: rv.Index(0).Interface(), To: rv.Index(1).Interface()}
	}
	if r.From == nil || r.To == nil {
		return nil, fmt.Errorf("range %v must have both bounds", r)
	}
	if elem != nil && helpers.IsNumericType(elem) && helpers.IsNumber(r.From) && helpers.IsNumber(r.To) {
		from, err := helpers.Coerce(r.From, elem)
		if err != nil {
			return nil, err
		}
		to, err := helpers.Coerce(r.To, elem)
		if err != nil {
			return nil, err
		}
		r.From, r.To = from, to
	}
	if c, err := helpers.Compare(r.From, r.To); err != nil {
		return nil, err
	} else if c > 0 {
		return nil, fmt.Errorf("range %v is reversed", r)
	}
	return r, nil
}
