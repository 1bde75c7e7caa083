package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"griffon/src/models"
	"griffon/src/validation"
)

const accountConstraints = `
login:
  - blank: false
  - size: [3, 10]
  - shared: lowercase
  - widget: text
  - searchable: true
email:
  email: true
  nullable: true
age:
  - range: [0, 130]
  - email: true
`

func parseClassConstraints(t *testing.T, doc string) ClassConstraints {
	t.Helper()
	var defs ClassConstraints
	require.NoError(t, yaml.Unmarshal([]byte(doc), &defs))
	return defs
}

func newEvaluator(t *testing.T, defaults DefaultConstraints) *Evaluator {
	t.Helper()
	return NewEvaluator(NewDefaultRegistry(), validation.NewDefaultMessageSource(), defaults, zaptest.NewLogger(t).Sugar())
}

func TestClassConstraintsYAML(t *testing.T) {
	defs := parseClassConstraints(t, accountConstraints)
	require.Len(t, defs, 3)
	assert.Equal(t, "login", defs[0].Property)
	assert.Equal(t, "email", defs[1].Property)
	assert.Equal(t, "age", defs[2].Property)

	assert.Equal(t, ConstraintDefs{
		{Name: "blank", Value: false},
		{Name: "size", Value: []any{3, 10}},
		{Name: "shared", Value: "lowercase"},
		{Name: "widget", Value: "text"},
		{Name: "searchable", Value: true},
	}, defs[0].Constraints)

	email, ok := defs.Get("email")
	require.True(t, ok)
	assert.Equal(t, ConstraintDefs{{Name: "email", Value: true}, {Name: "nullable", Value: true}}, email)

	var bad ClassConstraints
	assert.Error(t, yaml.Unmarshal([]byte("login: [blank]"), &bad))
	assert.Error(t, yaml.Unmarshal([]byte("- login"), &bad))
}

func accountDefaults() DefaultConstraints {
	return DefaultConstraints{
		GlobalConstraintsKey: {{Name: MaxSizeConstraintName, Value: 50}},
		"lowercase":          {{Name: MatchesConstraintName, Value: "[a-z]+"}},
	}
}

func TestEvaluate(t *testing.T) {
	properties, err := newEvaluator(t, accountDefaults()).Evaluate(accountClass, parseClassConstraints(t, accountConstraints))
	require.NoError(t, err)

	assert.Equal(t, []string{"login", "email", "age", "balance", "tags", "nick"}, properties.Names())
	for i, cp := range properties.All() {
		assert.Equal(t, i+1, cp.Order(), cp.PropertyName())
	}

	login, ok := properties.Get("login")
	require.True(t, ok)
	assert.False(t, login.Blank())
	assert.Equal(t, "[a-z]+", login.Matches())
	assert.Equal(t, "text", login.Widget())
	n, _ := login.MaxSize()
	assert.Equal(t, 10, n)
	v, ok := login.MetaConstraintValue("searchable")
	require.True(t, ok)
	assert.Equal(t, true, v)

	email, _ := properties.Get("email")
	assert.True(t, email.Email())
	assert.True(t, email.Nullable())
	n, _ = email.MaxSize()
	assert.Equal(t, 50, n)

	age, _ := properties.Get("age")
	assert.False(t, age.HasAppliedConstraint(EmailConstraintName))
	assert.False(t, age.HasAppliedConstraint(MaxSizeConstraintName))
	assert.Equal(t, 130, age.Max())

	tags, _ := properties.Get("tags")
	assert.True(t, tags.Nullable())
	nick, _ := properties.Get("nick")
	assert.False(t, nick.Nullable())

	_, ok = properties.Get("id")
	assert.False(t, ok)
}

func TestEvaluateWithoutDeclarations(t *testing.T) {
	properties, err := newEvaluator(t, nil).Evaluate(accountClass, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, properties.Len())
	for _, cp := range properties.All() {
		assert.True(t, cp.HasAppliedConstraint(NullableConstraintName), cp.PropertyName())
	}
}

func TestEvaluateUnknownProperty(t *testing.T) {
	_, err := newEvaluator(t, nil).Evaluate(accountClass, parseClassConstraints(t, "surname: [ { blank: false } ]"))
	assert.ErrorIs(t, err, validation.ErrUnknownProperty)
}

func TestEvaluateMissingSharedConstraint(t *testing.T) {
	_, err := newEvaluator(t, nil).Evaluate(accountClass, parseClassConstraints(t, "login: [ { shared: nope } ]"))
	assert.ErrorContains(t, err, "nope")
}

func TestEvaluateUnsupportedValue(t *testing.T) {
	_, err := newEvaluator(t, nil).Evaluate(accountClass, parseClassConstraints(t, "age: [ { max: old } ]"))
	var pe *validation.PropertyError
	assert.ErrorAs(t, err, &pe)
}

func TestValidator(t *testing.T) {
	properties, err := newEvaluator(t, accountDefaults()).Evaluate(accountClass, parseClassConstraints(t, accountConstraints))
	require.NoError(t, err)
	validator := NewValidator(zaptest.NewLogger(t).Sugar())

	nick := "al"
	ok := &account{Login: "alice", Email: "alice@example.com", Age: 30, Nick: &nick}
	errs := newErrors()
	assert.True(t, validator.Validate(properties, ok, errs))

	bad := &account{Login: "", Email: "alice", Age: 200}
	errs = newErrors()
	assert.False(t, validator.Validate(properties, bad, errs))
	assert.True(t, errs.HasFieldErrorsFor("login"))
	assert.True(t, errs.HasFieldErrorsFor("email"))
	assert.True(t, errs.HasFieldErrorsFor("age"))
	assert.True(t, errs.HasFieldErrorsFor("nick"))
	assert.False(t, errs.HasFieldErrorsFor("tags"))

	errs = newErrors()
	assert.False(t, validator.Validate(properties, bad, errs, "age", "unknown"))
	assert.Equal(t, 1, errs.ErrorCount())
	assert.True(t, errs.HasFieldErrorsFor("age"))
}

type profile struct {
	ID     int64
	Handle string
	errs   validation.Errors
}

func (p *profile) Errors() validation.Errors { return p.errs }

func TestValidateObject(t *testing.T) {
	class := models.MustDomainClass("Profile", &profile{})
	properties, err := newEvaluator(t, nil).Evaluate(class, parseClassConstraints(t, "handle: [ { minSize: 3 } ]"))
	require.NoError(t, err)
	validator := NewValidator(nil)

	p := &profile{Handle: "ab", errs: validation.NewErrors("profile", models.PropertyTypes(class))}
	p.errs.Reject("stale", nil, "stale")
	assert.False(t, validator.ValidateObject(properties, p))
	assert.False(t, p.errs.HasGlobalErrors())
	assert.Equal(t, 1, p.errs.FieldErrorCount("handle"))

	p.Handle = "abc"
	assert.True(t, validator.ValidateObject(properties, p, "handle"))
	assert.Equal(t, 0, p.errs.FieldErrorCount("handle"))
}
