package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCriterionEvaluator(t *testing.T) {
	nick := "al"
	alice := &person{ID: 1, Name: "alice", Email: "alice", Age: 30, Nick: &nick}
	bob := &person{ID: 2, Name: "bob", Email: "bob@example.com", Age: 40}

	tests := []struct {
		name      string
		criterion Criterion
		alice     bool
		bob       bool
	}{
		{"eq", Eq("name", "alice"), true, false},
		{"eq across number kinds", Eq("age", int64(30)), true, false},
		{"ne", Ne("name", "alice"), false, true},
		{"gt", Gt("age", 30), false, true},
		{"ge", Ge("age", 30), true, true},
		{"lt", Lt("age", 40.0), true, false},
		{"le", Le("age", 40), true, true},
		{"gt on strings", Gt("name", "b"), false, true},
		{"gt string against number", Gt("name", 3), false, false},
		{"like prefix", Like("name", "al%"), true, false},
		{"like single char", Like("name", "b_b"), false, true},
		{"like quotes metacharacters", Like("email", "%.com"), false, true},
		{"like dot is literal", Like("email", "bob@example.co."), false, false},
		{"not like", NotLike("name", "al%"), false, true},
		{"like on number", Like("age", "3%"), false, false},
		{"is null", IsNull("nick"), false, true},
		{"is not null", IsNotNull("nick"), true, false},
		{"unknown property", Eq("height", 1), false, false},
		{"eq property", EqProperty("name", "email"), true, false},
		{"ne property", NeProperty("name", "email"), false, true},
		{"lt property", LtProperty("name", "email"), false, true},
		{"and", And(Gt("age", 20), Like("name", "a%")), true, false},
		{"or", Or(Eq("name", "zed"), Eq("age", 40)), false, true},
		{"empty and", And(), true, true},
		{"empty or", Or(), false, false},
		{"nil criterion", nil, true, true},
	}

	e := NewCriterionEvaluator(zaptest.NewLogger(t).Sugar())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.alice, e.Eval(personClass, alice, tt.criterion), "alice")
			assert.Equal(t, tt.bob, e.Eval(personClass, bob, tt.criterion), "bob")
		})
	}
}

func TestNot(t *testing.T) {
	assert.Equal(t, Ne("name", "a"), Not(Eq("name", "a")))
	assert.Equal(t, Le("age", 3), Not(Gt("age", 3)))
	assert.Equal(t, NotLike("name", "a%"), Not(Like("name", "a%")))
	assert.Equal(t, IsNotNull("nick"), Not(IsNull("nick")))
	assert.Equal(t, GeProperty("age", "id"), Not(LtProperty("age", "id")))
	assert.Equal(t,
		And(Ne("name", "a"), Ge("age", 3)),
		Not(Or(Eq("name", "a"), Lt("age", 3))))
}

func TestCriterionString(t *testing.T) {
	c := And(Gt("age", 30), Or(Eq("name", "bob"), IsNull("nick")))
	assert.Equal(t, `(age > 30 AND (name == "bob" OR nick IS NULL))`, c.String())
}

func TestParseWhereClause(t *testing.T) {
	tests := []struct {
		name   string
		clause string
		want   Criterion
	}{
		{"single", `age > 30`, Gt("age", int64(30))},
		{"where keyword", `WHERE name == "bob"`, Eq("name", "bob")},
		{"single equals", `name = "bob smith"`, Eq("name", "bob smith")},
		{"float", `balance <= 10.5`, Le("balance", 10.5)},
		{"bool", `active != false`, Ne("active", false)},
		{"bare word", `name == bob`, Eq("name", "bob")},
		{"single quotes", `name == 'bob'`, Eq("name", "bob")},
		{"empty string", `name == ""`, Eq("name", "")},
		{"escaped quote", `name == "say \"hi\""`, Eq("name", `say "hi"`)},
		{"like", `name LIKE "al%"`, Like("name", "al%")},
		{"not like", `name not like "al%"`, NotLike("name", "al%")},
		{"is null", `nick IS NULL`, IsNull("nick")},
		{"is not null", `nick is not null`, IsNotNull("nick")},
		{"eq null", `nick == null`, IsNull("nick")},
		{"ne null", `nick != null`, IsNotNull("nick")},
		{"and", `age >= 18 AND age < 65`, And(Ge("age", int64(18)), Lt("age", int64(65)))},
		{"and binds tighter", `a == 1 OR b == 2 AND c == 3`,
			Or(Eq("a", int64(1)), And(Eq("b", int64(2)), Eq("c", int64(3))))},
		{"groups", `age > 30 AND (name == "bob" OR name LIKE "al%")`,
			And(Gt("age", int64(30)), Or(Eq("name", "bob"), Like("name", "al%")))},
		{"nested groups", `((age > 1))`, Gt("age", int64(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWhereClause(tt.clause)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWhereClauseErrors(t *testing.T) {
	for _, clause := range []string{
		``,
		`WHERE`,
		`age`,
		`age >`,
		`age ~ 3`,
		`age > 3 AND`,
		`(age > 3`,
		`age > 3)`,
		`name == "open`,
		`age > null`,
		`"age" > 3`,
	} {
		t.Run(clause, func(t *testing.T) {
			_, err := ParseWhereClause(clause)
			assert.Error(t, err)
		})
	}
}

func TestWhereClauseQuery(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds,
		&person{Name: "alice", Age: 25},
		&person{Name: "albert", Age: 35},
		&person{Name: "bob", Age: 45},
		&person{Name: "carol", Age: 55},
	)

	c, err := ParseWhereClause(`age > 30 AND (name == "bob" OR name LIKE "al%")`)
	require.NoError(t, err)
	entities, err := ds.QueryCriterion(c, Options{Sort: "age", Order: Desc})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "albert"}, names(entities))

	c, err = ParseWhereClause(`age >= 35`)
	require.NoError(t, err)
	entities, err = ds.QueryCriterion(c, Options{Max: 2, Offset: 1, Sort: "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, names(entities))
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, Options{Sort: "id", Order: Asc}, opts)

	opts, err = ParseOptions(map[string]any{"max": 5, "offset": int64(2), "sort": "name", "order": "DESC", "other": true})
	require.NoError(t, err)
	assert.Equal(t, Options{Max: 5, Offset: 2, Sort: "name", Order: Desc}, opts)

	for _, bad := range []map[string]any{
		{"max": -1},
		{"max": 0},
		{"max": "ten"},
		{"offset": 1.5},
		{"order": "sideways"},
	} {
		_, err := ParseOptions(bad)
		assert.Error(t, err, "%v", bad)
	}
}
