package datastore

import (
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/models"
)

// Datastore is a named registry of datasets, one per domain class.
type Datastore struct {
	name      string
	id        string
	evaluator CriterionEvaluator
	metrics   *Metrics
	logger    *zap.SugaredLogger

	datasets sync.Map // class name -> *DefaultDataset
}

// NewDatastore creates an empty datastore. A blank name is replaced by the
// datastore's generated id. evaluator and metrics may be nil.
func NewDatastore(name string, evaluator CriterionEvaluator, metrics *Metrics, logger *zap.SugaredLogger) *Datastore {
	logger = helpers.LoggerOrNop(logger)
	id := helpers.GenerateUUID()
	if helpers.IsBlank(name) {
		name = id
	}
	if evaluator == nil {
		evaluator = NewCriterionEvaluator(logger)
	}
	return &Datastore{
		name:      name,
		id:        id,
		evaluator: evaluator,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *Datastore) Name() string { return s.name }

func (s *Datastore) ID() string { return s.id }

// Dataset returns the dataset of class, creating it on first use. Concurrent
// callers always receive the same instance.
func (s *Datastore) Dataset(class models.DomainClass) (Dataset, error) {
	ds, err := s.dataset(class)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Datastore) dataset(class models.DomainClass) (*DefaultDataset, error) {
	if class == nil {
		return nil, fmt.Errorf("datastore %s: domain class cannot be nil", s.name)
	}
	if existing, ok := s.datasets.Load(class.Name()); ok {
		return existing.(*DefaultDataset), nil
	}
	created, err := NewDataset(class, s.evaluator, s.metrics, s.logger)
	if err != nil {
		return nil, err
	}
	actual, loaded := s.datasets.LoadOrStore(class.Name(), created)
	if !loaded {
		s.logger.Debugw("Created dataset", "datastore", s.name, "dataset", class.Name(), "type", class.Type().String())
	}
	return actual.(*DefaultDataset), nil
}

// DatasetByName returns an existing dataset.
func (s *Datastore) DatasetByName(name string) (Dataset, bool) {
	ds, ok := s.datasets.Load(name)
	if !ok {
		return nil, false
	}
	return ds.(*DefaultDataset), true
}

// Datasets returns every dataset sorted by name.
func (s *Datastore) Datasets() []Dataset {
	var out []Dataset
	s.datasets.Range(func(_, v any) bool {
		out = append(out, v.(*DefaultDataset))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FindOther looks up values in the dataset of target's class. Targets of a
// class without a dataset have nothing to conflict with.
func (s *Datastore) FindOther(target any, values map[string]any) bool {
	found := false
	s.datasets.Range(func(_, v any) bool {
		ds := v.(*DefaultDataset)
		if !ds.Class().IsInstance(target) {
			return true
		}
		found = ds.FindOther(target, values)
		return false
	})
	return found
}

// Snapshot keys used in the BSON document.
const (
	snapshotNameKey     = "datastore"
	snapshotDatasetsKey = "datasets"
)

// Snapshot encodes the rows of every dataset as a BSON document.
func (s *Datastore) Snapshot() ([]byte, error) {
	datasets := make(map[string]interface{})
	s.datasets.Range(func(k, v any) bool {
		datasets[k.(string)] = v.(*DefaultDataset).snapshotRows()
		return true
	})
	data, err := helpers.EncodeBSON(map[string]interface{}{
		snapshotNameKey:     s.name,
		snapshotDatasetsKey: datasets,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot of datastore %s: %w", s.name, err)
	}
	s.logger.Infof("Snapshot of datastore %s holds %d datasets", s.name, len(datasets))
	return data, nil
}

// Restore replaces the contents of the datasets of classes with the rows
// found in a snapshot. Datasets in the snapshot without a matching class are
// skipped.
func (s *Datastore) Restore(data []byte, classes ...models.DomainClass) error {
	doc, err := helpers.DecodeBSON(data)
	if err != nil {
		return fmt.Errorf("restore of datastore %s: %w", s.name, err)
	}
	raw, ok := normalizeBSON(doc[snapshotDatasetsKey]).(map[string]any)
	if !ok {
		return fmt.Errorf("restore of datastore %s: snapshot has no %s document", s.name, snapshotDatasetsKey)
	}

	byName := make(map[string]models.DomainClass, len(classes))
	for _, class := range classes {
		byName[class.Name()] = class
	}

	for name, rows := range raw {
		class, ok := byName[name]
		if !ok {
			s.logger.Warnw("Skipping dataset without a domain class", "datastore", s.name, "dataset", name)
			continue
		}
		list, ok := rows.([]any)
		if !ok {
			return fmt.Errorf("restore of dataset %s: expected an array of rows, got %T", name, rows)
		}
		ds, err := s.dataset(class)
		if err != nil {
			return err
		}
		ds.Clear()
		for i, row := range list {
			values, ok := row.(map[string]any)
			if !ok {
				return fmt.Errorf("restore of dataset %s: row %d is a %T", name, i, row)
			}
			entity, err := class.FromMap(values)
			if err != nil {
				return fmt.Errorf("restore of dataset %s, row %d: %w", name, i, err)
			}
			if _, err := ds.Save(entity); err != nil {
				return fmt.Errorf("restore of dataset %s, row %d: %w", name, i, err)
			}
		}
		s.logger.Infof("Restored %d rows into dataset %s", len(list), name)
	}
	return nil
}

// normalizeBSON turns the driver's document and array types into plain maps
// and slices.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeBSON(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeBSON(e)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Null, primitive.Undefined:
		return nil
	}
	return v
}
