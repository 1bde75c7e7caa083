package validation

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectFieldResolvesCodes(t *testing.T) {
	errs := NewErrors("person", map[string]reflect.Type{"name": reflect.TypeOf("")})
	errs.RejectField("name", "x", "blank", []any{"name", "Person", "x"}, "cannot be blank")

	require.True(t, errs.HasErrors())
	require.True(t, errs.HasFieldErrorsFor("name"))
	fe, ok := errs.FieldError("name")
	require.True(t, ok)
	assert.Equal(t, []string{"blank.person.name", "blank.name", "blank.string", "blank"}, fe.Codes)
	assert.Equal(t, "blank.person.name", fe.Code())
	assert.Equal(t, "x", fe.RejectedValue)
	assert.Equal(t, 1, errs.ErrorCount())
	assert.False(t, errs.HasGlobalErrors())
}

func TestRejectGlobal(t *testing.T) {
	errs := NewErrors("person", nil)
	errs.Reject("invalid", nil, "broken")
	assert.True(t, errs.HasGlobalErrors())
	assert.Equal(t, []string{"invalid.person", "invalid"}, errs.GlobalErrors()[0].Codes)
	assert.Equal(t, 1, errs.GlobalErrorCount())
}

func TestDuplicateErrorsIgnored(t *testing.T) {
	errs := NewErrors("person", nil)
	errs.RejectField("name", "x", "blank", nil, "m")
	errs.RejectField("name", "x", "blank", nil, "m")
	errs.Reject("g", nil, "m")
	errs.Reject("g", nil, "m")
	assert.Equal(t, 2, errs.ErrorCount())
}

func TestFieldOrderPreserved(t *testing.T) {
	errs := NewErrors("person", nil)
	errs.RejectField("b", 1, "x", nil, "")
	errs.RejectField("a", 2, "x", nil, "")
	errs.RejectField("b", 3, "y", nil, "")

	var fields []string
	for _, fe := range errs.AllFieldErrors() {
		fields = append(fields, fmt.Sprintf("%s=%v", fe.Field, fe.RejectedValue))
	}
	assert.Equal(t, []string{"b=1", "b=3", "a=2"}, fields)
	assert.Equal(t, 2, errs.FieldErrorCount("b"))
	assert.Len(t, errs.FieldErrors("a"), 1)
}

func TestClearErrors(t *testing.T) {
	errs := NewErrors("person", nil)
	errs.RejectField("a", 1, "x", nil, "")
	errs.RejectField("b", 1, "x", nil, "")
	errs.Reject("g", nil, "")

	errs.ClearFieldErrorsFor("a")
	assert.False(t, errs.HasFieldErrorsFor("a"))
	assert.Equal(t, 2, errs.ErrorCount())

	errs.ClearGlobalErrors()
	assert.Equal(t, 1, errs.ErrorCount())

	errs.ClearFieldErrors()
	assert.False(t, errs.HasErrors())

	errs.RejectField("a", 1, "x", nil, "")
	errs.ClearAllErrors()
	assert.False(t, errs.HasErrors())
	assert.Empty(t, errs.AllFieldErrors())
}

func TestChangeEvents(t *testing.T) {
	errs := NewErrors("person", nil)
	var events []ChangeEvent
	errs.OnChange(func(e ChangeEvent) { events = append(events, e) })

	errs.RejectField("name", "", "blank", nil, "")
	assert.Equal(t, []ChangeEvent{
		{"nameHasErrors", false, true},
		{"nameErrorCount", 0, 1},
		{HasErrorsProperty, false, true},
		{ErrorCountProperty, 0, 1},
	}, events)

	events = nil
	errs.RejectField("name", "", "size", nil, "")
	assert.Equal(t, []ChangeEvent{
		{"nameErrorCount", 1, 2},
		{ErrorCountProperty, 1, 2},
	}, events)

	events = nil
	errs.ClearAllErrors()
	assert.Equal(t, []ChangeEvent{
		{"nameHasErrors", true, false},
		{"nameErrorCount", 2, 0},
		{HasErrorsProperty, true, false},
		{ErrorCountProperty, 2, 0},
	}, events)
}

func TestMessageSource(t *testing.T) {
	src := NewMapMessageSource(map[string]string{
		"blank.name": "Name {0} of {1} is blank",
	})
	msg, ok := src.GetMessage("blank.name", []any{"name", "Person"})
	require.True(t, ok)
	assert.Equal(t, "Name name of Person is blank", msg)

	_, ok = src.GetMessage("missing", nil)
	assert.False(t, ok)

	fe := ObjectError{Codes: []string{"blank.person.name", "blank.name"}, Args: []any{"name", "Person"}}
	assert.Equal(t, "Name name of Person is blank", ResolveMessage(src, fe))

	fe = ObjectError{Codes: []string{"other"}, Args: []any{"x"}, DefaultMessage: "default {0}"}
	assert.Equal(t, "default x", ResolveMessage(src, fe))
	assert.Equal(t, "default x", ResolveMessage(nil, fe))
}

func TestDefaultMessages(t *testing.T) {
	src := NewDefaultMessageSource()
	msg, ok := src.GetMessage(DefaultBlankMessageCode, []any{"name", "Person"})
	require.True(t, ok)
	assert.Equal(t, "Property [name] of class [Person] cannot be blank", msg)
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("boom")
	ce := &ConstraintError{Constraint: "max", Owner: "Person", Property: "age", Value: 3, Err: cause}
	assert.True(t, errors.Is(ce, cause))
	assert.Contains(t, ce.Error(), "[max]")

	ve := &ValidationError{Message: "invalid"}
	assert.True(t, errors.Is(ve, ErrValidationFailed))
	ve = &ValidationError{Message: "dup", Err: ErrNotUnique}
	assert.True(t, errors.Is(ve, ErrNotUnique))

	pe := &PropertyError{Owner: "Person", Property: "age", Constraint: "max"}
	assert.False(t, errors.Is(pe, ErrUnknownProperty))
}
