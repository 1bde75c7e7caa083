package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinConstraints(t *testing.T) {
	tests := []struct {
		name       string
		property   string
		constraint string
		param      any
		value      any
		code       string
	}{
		{"email ok", "email", EmailConstraintName, true, "ann@example.com", ""},
		{"email bad", "email", EmailConstraintName, true, "ann@", "email.invalid"},
		{"url ok", "login", URLConstraintName, true, "http://example.com/a", ""},
		{"url bad", "login", URLConstraintName, true, "not a url", "url.invalid"},
		{"credit card ok", "login", CreditCardConstraintName, true, "4111111111111111", ""},
		{"credit card bad", "login", CreditCardConstraintName, true, "4111111111111112", "creditCard.invalid"},
		{"matches ok", "login", MatchesConstraintName, "[a-z]+", "ann", ""},
		{"matches is anchored", "login", MatchesConstraintName, "[a-z]+", "ann1", "matches.invalid"},
		{"date ok", "login", DateConstraintName, "2006-01-02", "2024-02-28", ""},
		{"date bad", "login", DateConstraintName, "2006-01-02", "28/02/2024", "date.invalid"},
		{"date rfc3339", "login", DateConstraintName, true, "2024-02-28T10:00:00Z", ""},
		{"in list ok", "login", InListConstraintName, []any{"ann", "bob"}, "bob", ""},
		{"in list bad", "login", InListConstraintName, []any{"ann", "bob"}, "eve", "not.inList"},
		{"in list numbers", "age", InListConstraintName, []any{18, 21}, 21, ""},
		{"not equal ok", "login", NotEqualConstraintName, "root", "ann", ""},
		{"not equal bad", "login", NotEqualConstraintName, "root", "root", "notEqual"},
		{"max ok", "age", MaxConstraintName, 10, 10, ""},
		{"max bad", "age", MaxConstraintName, 10, 11, "max.exceeded"},
		{"min ok", "age", MinConstraintName, 10, 10, ""},
		{"min bad", "age", MinConstraintName, 10, 9, "min.notmet"},
		{"range low", "age", RangeConstraintName, []any{1, 5}, 0, "range.toosmall"},
		{"range high", "age", RangeConstraintName, []any{1, 5}, 6, "range.toobig"},
		{"range ok", "age", RangeConstraintName, map[string]any{"from": 1, "to": 5}, 5, ""},
		{"max size bad", "login", MaxSizeConstraintName, 3, "anna", "maxSize.exceeded"},
		{"min size bad", "login", MinSizeConstraintName, 3, "an", "minSize.notmet"},
		{"size on slices", "tags", SizeConstraintName, []any{1, 2}, []string{"a", "b", "c"}, "size.toobig"},
		{"max size on slices", "tags", MaxSizeConstraintName, 2, []string{"a"}, ""},
		{"nil skipped", "age", MaxConstraintName, 10, nil, ""},
		{"blank skipped", "login", EmailConstraintName, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := newProperty(t, tt.property, nil)
			require.NoError(t, cp.ApplyConstraint(tt.constraint, tt.param))

			errs := newErrors()
			cp.Validate(&account{}, tt.value, errs)
			if tt.code == "" {
				assert.False(t, errs.HasErrors())
				return
			}
			fe, ok := errs.FieldError(tt.property)
			require.True(t, ok)
			assert.Contains(t, fe.Codes, tt.code)
			assert.NotEmpty(t, fe.DefaultMessage)
		})
	}
}

func TestConstraintParameters(t *testing.T) {
	tests := []struct {
		name       string
		property   string
		constraint string
		param      any
	}{
		{"email needs bool", "email", EmailConstraintName, "yes"},
		{"max needs number", "age", MaxConstraintName, "ten"},
		{"reversed range", "age", RangeConstraintName, []any{5, 1}},
		{"range needs two bounds", "age", RangeConstraintName, []any{1}},
		{"negative max size", "login", MaxSizeConstraintName, -1},
		{"bad regexp", "login", MatchesConstraintName, "("},
		{"date layout", "login", DateConstraintName, "2006,01"},
		{"negative scale", "balance", ScaleConstraintName, -2},
		{"in list needs list", "login", InListConstraintName, "ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := newProperty(t, tt.property, nil)
			assert.Error(t, cp.ApplyConstraint(tt.constraint, tt.param))
			assert.False(t, cp.HasAppliedConstraint(tt.constraint))
		})
	}
}

func TestScaleRoundsValue(t *testing.T) {
	cp := newProperty(t, "balance", nil)
	require.NoError(t, cp.ApplyConstraint(ScaleConstraintName, 2))
	scale, ok := cp.Scale()
	require.True(t, ok)
	assert.Equal(t, 2, scale)

	a := &account{Balance: 3.14159}
	errs := newErrors()
	cp.Validate(a, a.Balance, errs)
	assert.False(t, errs.HasErrors())
	assert.InDelta(t, 3.14, a.Balance, 1e-9)

	a.Balance = -2.6751
	cp.Validate(a, a.Balance, errs)
	assert.InDelta(t, -2.68, a.Balance, 1e-9)
}

func TestRangeContains(t *testing.T) {
	r := IntRange(1, 5)
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(5))
	assert.True(t, r.Contains(int64(3)))
	assert.False(t, r.Contains(6))
	assert.False(t, r.Contains("x"))
	assert.Equal(t, "1..5", r.String())
}
