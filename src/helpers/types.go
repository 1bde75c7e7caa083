package helpers

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

// ErrLossyConversion is returned by Coerce when a number does not survive
// the conversion to the target type.
var ErrLossyConversion = errors.New("conversion changes the value")

// Comparable is implemented by values that define their own ordering.
type Comparable interface {
	CompareTo(other any) int
}

// Equals compares two values the way the datastore matches fields: nils are
// only equal to nils, numbers compare by value regardless of their Go kind,
// slices and arrays compare element by element and everything else falls back
// to reflect.DeepEqual.
func Equals(left, right any) bool {
	if left == nil || right == nil {
		return isNil(left) && isNil(right)
	}

	if IsNumber(left) && IsNumber(right) {
		c, err := compareNumbers(left, right)
		return err == nil && c == 0
	}

	lv := reflect.ValueOf(left)
	rv := reflect.ValueOf(right)
	if isList(lv) && isList(rv) {
		if lv.Len() != rv.Len() {
			return false
		}
		for i := 0; i < lv.Len(); i++ {
			if !Equals(lv.Index(i).Interface(), rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	if lt, ok := left.(time.Time); ok {
		if rt, ok := right.(time.Time); ok {
			return lt.Equal(rt)
		}
	}

	return reflect.DeepEqual(left, right)
}

// Compare orders two values. nil sorts before everything else. Numbers of any
// kind, strings, booleans, time.Time and Comparable implementations are
// supported; any other combination is an error.
func Compare(left, right any) (int, error) {
	ln, rn := isNil(left), isNil(right)
	switch {
	case ln && rn:
		return 0, nil
	case ln:
		return -1, nil
	case rn:
		return 1, nil
	}

	if IsNumber(left) && IsNumber(right) {
		return compareNumbers(left, right)
	}

	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			switch {
			case l < r:
				return -1, nil
			case l > r:
				return 1, nil
			}
			return 0, nil
		}
	case bool:
		if r, ok := right.(bool); ok {
			switch {
			case l == r:
				return 0, nil
			case !l:
				return -1, nil
			}
			return 1, nil
		}
	case time.Time:
		if r, ok := right.(time.Time); ok {
			return l.Compare(r), nil
		}
	case Comparable:
		return l.CompareTo(right), nil
	}

	return 0, fmt.Errorf("cannot compare %T with %T", left, right)
}

// IsNumber reports whether v holds a Go integer or floating point value.
func IsNumber(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsNumericType reports whether t is an integer or floating point type.
func IsNumericType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsComparableType reports whether values of t can be ordered by Compare.
func IsComparableType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if IsNumericType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool:
		return true
	}
	if t == reflect.TypeOf(time.Time{}) {
		return true
	}
	return t.Implements(reflect.TypeOf((*Comparable)(nil)).Elem())
}

// IsSizedType reports whether t has a length (strings, slices, arrays, maps).
func IsSizedType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// SizeOf returns the length of a string (in runes), slice, array or map.
func SizeOf(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		return len([]rune(s)), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// ToInt converts any Go number into an int.
func ToInt(v any) (int, bool) {
	if !IsNumber(v) {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	}
	return int(rv.Int()), true
}

// ToFloat converts any Go number into a float64.
func ToFloat(v any) (float64, bool) {
	if !IsNumber(v) {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return float64(rv.Int()), true
}

// Coerce converts v to type t: numbers to numbers, anything to itself.
// Numbers that overflow t, change sign or lose a fraction are rejected with
// ErrLossyConversion. Float targets accept rounding.
func Coerce(v any, t reflect.Type) (any, error) {
	if v == nil {
		return reflect.Zero(t).Interface(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return v, nil
	}
	if IsNumber(v) && IsNumericType(t) {
		return convertNumber(rv, t)
	}
	if t.Kind() == reflect.Interface && rv.Type().Implements(t) {
		return v, nil
	}
	if t.Kind() == reflect.Slice && isList(rv) {
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := Coerce(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(e))
		}
		return out.Interface(), nil
	}
	if rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
		return rv.Convert(t).Interface(), nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}

func convertNumber(rv reflect.Value, t reflect.Type) (any, error) {
	out := rv.Convert(t)
	lossy := false
	switch {
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		f, _ := ToFloat(rv.Interface())
		lossy = math.IsInf(out.Float(), 0) && !math.IsInf(f, 0)
	case isUnsigned(t.Kind()) && isNegative(rv):
		lossy = true
	case isUnsigned(rv.Kind()) && isSigned(t.Kind()) && out.Int() < 0:
		lossy = true
	case rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64:
		f := rv.Float()
		lossy = math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || out.Convert(rv.Type()).Float() != f
	default:
		lossy = out.Convert(rv.Type()).Interface() != rv.Interface()
	}
	if lossy {
		return nil, fmt.Errorf("cannot convert %v to %s: %w", rv.Interface(), t, ErrLossyConversion)
	}
	return out.Interface(), nil
}

func isNegative(rv reflect.Value) bool {
	switch {
	case isSigned(rv.Kind()):
		return rv.Int() < 0
	case rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64:
		return rv.Float() < 0
	}
	return false
}

func compareNumbers(left, right any) (int, error) {
	lv := reflect.ValueOf(left)
	rv := reflect.ValueOf(right)
	if isSigned(lv.Kind()) && isSigned(rv.Kind()) {
		return cmp(lv.Int(), rv.Int()), nil
	}
	if isUnsigned(lv.Kind()) && isUnsigned(rv.Kind()) {
		return cmp(lv.Uint(), rv.Uint()), nil
	}
	lf, _ := ToFloat(left)
	rf, _ := ToFloat(right)
	if math.IsNaN(lf) || math.IsNaN(rf) {
		return 0, fmt.Errorf("cannot compare NaN")
	}
	return cmp(lf, rf), nil
}

func cmp[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsNil reports whether v is nil or a nil pointer, map, slice or interface.
func IsNil(v any) bool {
	return isNil(v)
}
