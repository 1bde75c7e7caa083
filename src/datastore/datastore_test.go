package datastore

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"griffon/src/models"
)

type event struct {
	ID    int64
	Title string
	At    time.Time
}

var eventClass = models.MustDomainClass("Event", &event{})

func newDatastore(t *testing.T, name string, metrics *Metrics) *Datastore {
	t.Helper()
	return NewDatastore(name, nil, metrics, zaptest.NewLogger(t).Sugar())
}

func TestDatastoreNames(t *testing.T) {
	named := newDatastore(t, "default", nil)
	assert.Equal(t, "default", named.Name())
	assert.NotEmpty(t, named.ID())

	anonymous := newDatastore(t, " ", nil)
	assert.Equal(t, anonymous.ID(), anonymous.Name())
	assert.NotEqual(t, named.ID(), anonymous.ID())
}

func TestDatasetIsSharedAcrossCallers(t *testing.T) {
	store := newDatastore(t, "default", nil)

	const callers = 16
	results := make([]Dataset, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := store.Dataset(personClass)
			require.NoError(t, err)
			results[i] = ds
		}(i)
	}
	wg.Wait()

	for _, ds := range results[1:] {
		assert.Same(t, results[0], ds)
	}

	byName, ok := store.DatasetByName("Person")
	require.True(t, ok)
	assert.Same(t, results[0], byName)
	_, ok = store.DatasetByName("Nope")
	assert.False(t, ok)

	_, err := store.Dataset(nil)
	assert.Error(t, err)
}

func TestDatasetsSortedByName(t *testing.T) {
	store := newDatastore(t, "default", nil)
	_, err := store.Dataset(personClass)
	require.NoError(t, err)
	_, err = store.Dataset(eventClass)
	require.NoError(t, err)

	var got []string
	for _, ds := range store.Datasets() {
		got = append(got, ds.Name())
	}
	assert.Equal(t, []string{"Event", "Person"}, got)
}

func TestSnapshotRestore(t *testing.T) {
	store := newDatastore(t, "origin", nil)
	people, err := store.Dataset(personClass)
	require.NoError(t, err)
	events, err := store.Dataset(eventClass)
	require.NoError(t, err)

	nick := "al"
	seed(t, people,
		&person{Name: "alice", Email: "alice@example.com", Age: 30, Tags: []string{"admin", "ops"}, Nick: &nick},
		&person{Name: "bob", Age: 40},
	)
	_, err = people.Remove(&person{ID: 1})
	require.NoError(t, err)
	seed(t, people, &person{ID: 7, Name: "carol", Age: 50})

	at := time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC)
	seed(t, events, &event{Title: "launch", At: at})

	data, err := store.Snapshot()
	require.NoError(t, err)

	restored := newDatastore(t, "copy", nil)
	require.NoError(t, restored.Restore(data, personClass, eventClass))

	ds, ok := restored.DatasetByName("Person")
	require.True(t, ok)
	assert.Equal(t, []string{"bob", "carol"}, names(ds.List()))

	bob, ok := ds.Fetch(2)
	require.True(t, ok)
	assert.Equal(t, &person{ID: 2, Name: "bob", Age: 40}, bob)
	assert.Equal(t, int64(8), ds.NextID())

	evs, ok := restored.DatasetByName("Event")
	require.True(t, ok)
	launch, ok := evs.Fetch(1)
	require.True(t, ok)
	assert.True(t, at.Equal(launch.(*event).At))
	assert.Equal(t, "launch", launch.(*event).Title)
}

func TestSnapshotRestoreCollections(t *testing.T) {
	store := newDatastore(t, "origin", nil)
	people, err := store.Dataset(personClass)
	require.NoError(t, err)
	nick := "al"
	seed(t, people, &person{Name: "alice", Tags: []string{"admin", "ops"}, Nick: &nick})

	data, err := store.Snapshot()
	require.NoError(t, err)

	restored := newDatastore(t, "copy", nil)
	require.NoError(t, restored.Restore(data, personClass))
	ds, _ := restored.DatasetByName("Person")
	alice, ok := ds.Fetch(1)
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "ops"}, alice.(*person).Tags)
	require.NotNil(t, alice.(*person).Nick)
	assert.Equal(t, "al", *alice.(*person).Nick)
}

func TestRestoreReplacesRowsAndSkipsUnknownDatasets(t *testing.T) {
	store := newDatastore(t, "origin", nil)
	people, err := store.Dataset(personClass)
	require.NoError(t, err)
	seed(t, people, &person{Name: "alice"})
	events, err := store.Dataset(eventClass)
	require.NoError(t, err)
	seed(t, events, &event{Title: "launch"})

	data, err := store.Snapshot()
	require.NoError(t, err)

	target := newDatastore(t, "target", nil)
	stale, err := target.Dataset(personClass)
	require.NoError(t, err)
	seed(t, stale, &person{Name: "x"}, &person{Name: "y"})

	require.NoError(t, target.Restore(data, personClass))
	assert.Equal(t, []string{"alice"}, names(stale.List()))
	_, ok := target.DatasetByName("Event")
	assert.False(t, ok)

	assert.Error(t, target.Restore([]byte("garbage"), personClass))
}

func TestNormalizeBSON(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := primitive.D{
		{Key: "rows", Value: primitive.A{
			primitive.D{{Key: "name", Value: "ann"}, {Key: "at", Value: primitive.NewDateTimeFromTime(at)}},
			primitive.M{"tags": primitive.A{"a", "b"}},
		}},
		{Key: "none", Value: primitive.Null{}},
	}
	want := map[string]any{
		"rows": []any{
			map[string]any{"name": "ann", "at": at},
			map[string]any{"tags": []any{"a", "b"}},
		},
		"none": nil,
	}
	assert.Equal(t, want, normalizeBSON(in))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	require.NotNil(t, metrics)

	store := newDatastore(t, "default", metrics)
	ds, err := store.Dataset(personClass)
	require.NoError(t, err)

	a := &person{Name: "a"}
	seed(t, ds, a, &person{Name: "b"})
	seed(t, ds, a)
	_, err = ds.Remove(a)
	require.NoError(t, err)
	_, err = ds.SaveUnique(&person{Name: "b"}, [][]string{{"name"}})
	require.Error(t, err)
	_, err = ds.Query(map[string]any{"name": "b"}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.operations.WithLabelValues("Person", OperationInsert)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("Person", OperationUpdate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("Person", OperationRemove)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("Person", OperationQuery)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rejections.WithLabelValues("Person", ReasonUnique)))
}

func TestNilMetrics(t *testing.T) {
	assert.Nil(t, NewMetrics(nil))
	var m *Metrics
	assert.NotPanics(t, func() {
		m.operation("Person", OperationInsert)
		m.rejection("Person", ReasonValidation)
	})
}

func TestDatastoreFindOther(t *testing.T) {
	store := newDatastore(t, "default", nil)
	assert.False(t, store.FindOther(&person{Name: "ann"}, map[string]any{"name": "ann"}))

	people, err := store.Dataset(personClass)
	require.NoError(t, err)
	ann := &person{Name: "ann"}
	seed(t, people, ann)
	_, err = store.Dataset(eventClass)
	require.NoError(t, err)

	assert.True(t, store.FindOther(&person{Name: "ann"}, map[string]any{"name": "ann"}))
	assert.False(t, store.FindOther(ann, map[string]any{"name": "ann"}))
	assert.False(t, store.FindOther(&event{Title: "ann"}, map[string]any{"title": "ann"}))
}
