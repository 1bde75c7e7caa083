package datastore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"griffon/src/models"
	"griffon/src/validation"
)

type person struct {
	ID    int64
	Name  string
	Email string
	Age   int
	Tags  []string
	Nick  *string
}

var personClass = models.MustDomainClass("Person", &person{})

func newDataset(t *testing.T) *DefaultDataset {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	ds, err := NewDataset(personClass, NewCriterionEvaluator(logger), nil, logger)
	require.NoError(t, err)
	return ds
}

func seed(t *testing.T, ds Dataset, entities ...any) {
	t.Helper()
	for _, e := range entities {
		_, err := ds.Save(e)
		require.NoError(t, err)
	}
}

func names(entities []any) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.(*person).Name)
	}
	return out
}

func TestSaveAssignsSequentialIdentities(t *testing.T) {
	ds := newDataset(t)
	a, b, c := &person{Name: "a"}, &person{Name: "b"}, &person{Name: "c"}
	seed(t, ds, a, b, c)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, int64(3), c.ID)
	assert.Equal(t, 3, ds.Size())
}

func TestSaveUpdatesExistingRow(t *testing.T) {
	ds := newDataset(t)
	a := &person{Name: "a"}
	seed(t, ds, a)

	replacement := &person{ID: a.ID, Name: "z"}
	_, err := ds.Save(replacement)
	require.NoError(t, err)

	assert.Equal(t, int64(1), replacement.ID)
	assert.Equal(t, 1, ds.Size())
	got, ok := ds.Fetch(1)
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestSaveExplicitIdentityMovesSequence(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds, &person{ID: 10, Name: "ten"})

	next := &person{Name: "next"}
	seed(t, ds, next)
	assert.Equal(t, int64(11), next.ID)
	assert.Equal(t, []string{"ten", "next"}, names(ds.List()))
}

func TestSaveRejectsForeignEntities(t *testing.T) {
	ds := newDataset(t)
	_, err := ds.Save(nil)
	assert.Error(t, err)
	_, err = ds.Save(&struct{ ID int64 }{})
	assert.Error(t, err)
}

func TestDatasetRequiresIdentity(t *testing.T) {
	type note struct{ Text string }
	_, err := NewDataset(models.MustDomainClass("Note", &note{}), nil, nil, nil)
	assert.ErrorIs(t, err, validation.ErrNoIdentity)
}

func TestRemove(t *testing.T) {
	ds := newDataset(t)
	a, b := &person{Name: "a"}, &person{Name: "b"}
	seed(t, ds, a, b)

	_, err := ds.Remove(a)
	require.NoError(t, err)
	_, ok := ds.Fetch(a.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, names(ds.List()))

	// removing twice is harmless
	_, err = ds.Remove(a)
	assert.NoError(t, err)
}

func TestListSortedDescending(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds, &person{Name: "a"}, &person{Name: "b"}, &person{Name: "c"})

	opts, err := ParseOptions(map[string]any{"sort": "name", "order": "desc"})
	require.NoError(t, err)
	entities, err := ds.ListWith(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, names(entities))
}

func TestListWithPaginatesBeforeSorting(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds, &person{Name: "d"}, &person{Name: "c"}, &person{Name: "b"}, &person{Name: "a"})

	entities, err := ds.ListWith(Options{Offset: 1, Max: 2, Sort: "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names(entities))

	entities, err = ds.ListWith(Options{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, entities)

	entities, err = ds.ListWith(Options{Offset: -1, Max: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c"}, names(entities))

	entities, err = ds.Query(map[string]any{"name": "a"}, Options{Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(entities))

	_, err = ds.ListWith(Options{Sort: "height"})
	assert.ErrorIs(t, err, validation.ErrUnknownProperty)
}

func TestQueryByParams(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds,
		&person{Name: "ann", Age: 30},
		&person{Name: "bob", Age: 40},
		&person{Name: "cid", Age: 30},
		&person{Name: "dan", Age: 30},
	)

	entities, err := ds.Query(map[string]any{"age": 30}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "cid", "dan"}, names(entities))

	entities, err = ds.Query(map[string]any{"age": int64(30)}, Options{Max: 2, Sort: "name", Order: Desc})
	require.NoError(t, err)
	assert.Equal(t, []string{"cid", "ann"}, names(entities))

	entities, err = ds.Query(map[string]any{"age": 30.0}, Options{Offset: 1, Sort: "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cid", "dan"}, names(entities))

	entities, err = ds.Query(map[string]any{"age": 30, "name": "bob"}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestQueryEdgeCases(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds, &person{Name: "ann"})

	entities, err := ds.Query(map[string]any{}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, entities)

	_, err = ds.Query(map[string]any{"height": 3}, DefaultOptions())
	assert.ErrorIs(t, err, validation.ErrUnknownProperty)

	_, err = ds.QueryCriterion(nil, DefaultOptions())
	assert.Error(t, err)
}

func TestQueryExample(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds,
		&person{Name: "ann", Age: 30, Email: "ann@example.com"},
		&person{Name: "bob", Age: 30},
		&person{Name: "ann", Age: 41},
	)

	entities, err := ds.QueryExample(&person{Age: 30}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, names(entities))

	first, err := ds.FirstExample(&person{Name: "ann", Age: 41})
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.(*person).ID)

	_, err = ds.QueryExample("ann", DefaultOptions())
	assert.Error(t, err)
}

func TestFirst(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds, &person{Name: "ann", Age: 30}, &person{Name: "bob", Age: 30})

	first, err := ds.First(map[string]any{"age": 30})
	require.NoError(t, err)
	assert.Equal(t, "ann", first.(*person).Name)

	_, err = ds.First(map[string]any{"age": 99})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ds.First(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err = ds.FirstCriterion(Gt("name", "ann"))
	require.NoError(t, err)
	assert.Equal(t, "bob", first.(*person).Name)
}

func TestClearKeepsSequence(t *testing.T) {
	ds := newDataset(t)
	seed(t, ds, &person{Name: "a"}, &person{Name: "b"})
	ds.Clear()
	assert.Equal(t, 0, ds.Size())
	assert.Empty(t, ds.List())

	c := &person{Name: "c"}
	seed(t, ds, c)
	assert.Equal(t, int64(3), c.ID)
}

func TestSaveUnique(t *testing.T) {
	ds := newDataset(t)
	groups := [][]string{{"name"}}

	ann := &person{Name: "ann", Email: "ann@example.com"}
	_, err := ds.SaveUnique(ann, groups)
	require.NoError(t, err)

	_, err = ds.SaveUnique(&person{Name: "ann"}, groups)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrNotUnique)
	var notUnique *NotUniqueError
	require.True(t, errors.As(err, &notUnique))
	assert.Equal(t, []string{"name"}, notUnique.Properties)
	assert.Equal(t, []any{"ann"}, notUnique.Values)
	assert.Equal(t, ann.ID, notUnique.ConflictID)
	assert.Equal(t, 1, ds.Size())

	// updating the row that owns the value is allowed
	ann.Email = "ann@example.org"
	_, err = ds.SaveUnique(ann, groups)
	assert.NoError(t, err)

	// renaming frees the old value
	ann.Name = "anne"
	_, err = ds.SaveUnique(ann, groups)
	require.NoError(t, err)
	_, err = ds.SaveUnique(&person{Name: "ann"}, groups)
	assert.NoError(t, err)
}

func TestSaveUniqueSeesRowsChangedInPlace(t *testing.T) {
	ds := newDataset(t)
	groups := [][]string{{"name"}}

	ann, bob := &person{Name: "ann"}, &person{Name: "bob"}
	for _, p := range []*person{ann, bob} {
		_, err := ds.SaveUnique(p, groups)
		require.NoError(t, err)
	}

	// stored rows are shared with the caller
	bob.Name = "zed"

	_, err := ds.SaveUnique(&person{Name: "zed"}, groups)
	var notUnique *NotUniqueError
	require.ErrorAs(t, err, &notUnique)
	assert.Equal(t, bob.ID, notUnique.ConflictID)

	_, err = ds.SaveUnique(&person{Name: "bob"}, groups)
	assert.NoError(t, err)
	assert.Equal(t, 3, ds.Size())
}

func TestSaveUniqueGroups(t *testing.T) {
	ds := newDataset(t)
	groups := [][]string{{"name", "age"}}

	seed(t, ds, &person{Name: "ann", Age: 30})
	_, err := ds.SaveUnique(&person{Name: "ann", Age: 31}, groups)
	assert.NoError(t, err)
	_, err = ds.SaveUnique(&person{Name: "ann", Age: 30}, groups)
	assert.ErrorIs(t, err, validation.ErrNotUnique)

	_, err = ds.SaveUnique(&person{Name: "ann"}, [][]string{{"height"}})
	assert.ErrorIs(t, err, validation.ErrUnknownProperty)
}

func TestSaveUniqueSkipsNilValues(t *testing.T) {
	ds := newDataset(t)
	groups := [][]string{{"nick"}}
	for i := 0; i < 3; i++ {
		_, err := ds.SaveUnique(&person{Name: "anon"}, groups)
		require.NoError(t, err)
	}
	nick := "al"
	_, err := ds.SaveUnique(&person{Nick: &nick}, groups)
	require.NoError(t, err)
	other := "al"
	_, err = ds.SaveUnique(&person{Nick: &other}, groups)
	assert.ErrorIs(t, err, validation.ErrNotUnique)
}

func TestSaveUniqueIndexFollowsRemoveAndPlainSave(t *testing.T) {
	ds := newDataset(t)
	groups := [][]string{{"email"}}

	a := &person{Email: "a@example.com"}
	_, err := ds.SaveUnique(a, groups)
	require.NoError(t, err)

	b := &person{Email: "b@example.com"}
	seed(t, ds, b)
	_, err = ds.SaveUnique(&person{Email: "b@example.com"}, groups)
	assert.ErrorIs(t, err, validation.ErrNotUnique)

	_, err = ds.Remove(a)
	require.NoError(t, err)
	_, err = ds.SaveUnique(&person{Email: "a@example.com"}, groups)
	assert.NoError(t, err)
}

func TestSaveUniqueIsAtomic(t *testing.T) {
	ds := newDataset(t)
	groups := [][]string{{"name"}}

	const writers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	saved, rejected := 0, 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ds.SaveUnique(&person{Name: "same"}, groups)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				saved++
			} else if errors.Is(err, validation.ErrNotUnique) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, saved)
	assert.Equal(t, writers-1, rejected)
	assert.Equal(t, 1, ds.Size())
}

func TestFindOther(t *testing.T) {
	ds := newDataset(t)
	ann := &person{Name: "ann", Age: 30}
	seed(t, ds, ann)

	assert.False(t, ds.FindOther(ann, map[string]any{"name": "ann"}))
	assert.True(t, ds.FindOther(&person{}, map[string]any{"name": "ann"}))
	assert.True(t, ds.FindOther(&person{}, map[string]any{"name": "ann", "age": 30}))
	assert.False(t, ds.FindOther(&person{}, map[string]any{"name": "ann", "age": 31}))
	assert.False(t, ds.FindOther(&person{}, map[string]any{"height": 1}))
}

func TestNextIDIsMonotonic(t *testing.T) {
	ds := newDataset(t)
	var wg sync.WaitGroup
	ids := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- ds.NextID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}
