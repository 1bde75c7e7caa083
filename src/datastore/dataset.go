package datastore

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/validation"
)

// ErrNotFound is returned by the First methods when no entity matches.
var ErrNotFound = errors.New("no matching entity")

// Dataset is an in-memory, identity keyed collection of the entities of one
// domain class. Every call is atomic on its own; nothing spans calls.
type Dataset interface {
	Name() string
	Class() models.DomainClass

	// NextID returns the next value of the identity sequence.
	NextID() int64

	// Save inserts entity, assigning it an identity when it has none, or
	// replaces the stored row holding its identity.
	Save(entity any) (any, error)

	// SaveUnique saves entity only if no other row holds the same values for
	// any of the given property groups. Check and write happen under one
	// lock. Stored rows changed in place since their last save are checked
	// with their current values. A violation is reported as a
	// *NotUniqueError.
	SaveUnique(entity any, groups [][]string) (any, error)

	Remove(entity any) (any, error)

	// List returns every row in identity order.
	List() []any
	ListWith(opts Options) ([]any, error)
	Fetch(id int64) (any, bool)

	// QueryExample matches the non-zero persistent properties of example.
	QueryExample(example any, opts Options) ([]any, error)
	Query(params map[string]any, opts Options) ([]any, error)
	QueryCriterion(c Criterion, opts Options) ([]any, error)

	FirstExample(example any) (any, error)
	First(params map[string]any) (any, error)
	FirstCriterion(c Criterion) (any, error)

	Size() int
	Clear()
}

// NotUniqueError reports a save refused because another row already holds
// the same values.
type NotUniqueError struct {
	Class      string
	Properties []string
	Values     []any
	ConflictID int64
}

func (e *NotUniqueError) Error() string {
	return fmt.Sprintf("%s: property [%s] with value [%s] must be unique, already used by id %d",
		e.Class, strings.Join(e.Properties, ","), formatValues(e.Values), e.ConflictID)
}

func (e *NotUniqueError) Is(target error) bool { return target == validation.ErrNotUnique }

func formatValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

// DefaultDataset keeps rows in a map plus an identity sorted slice of keys,
// both guarded by one mutex.
type DefaultDataset struct {
	mu        sync.RWMutex
	class     models.DomainClass
	name      string
	evaluator CriterionEvaluator
	metrics   *Metrics
	logger    *zap.SugaredLogger

	rows     map[int64]any
	ids      []int64
	indexes  map[string]*uniqueIndex
	sequence atomic.Int64
}

var _ Dataset = (*DefaultDataset)(nil)

func NewDataset(class models.DomainClass, evaluator CriterionEvaluator, metrics *Metrics, logger *zap.SugaredLogger) (*DefaultDataset, error) {
	if class == nil {
		return nil, fmt.Errorf("dataset requires a domain class")
	}
	if class.Identity() == nil {
		return nil, fmt.Errorf("cannot create dataset for %s: %w", class.Name(), validation.ErrNoIdentity)
	}
	logger = helpers.LoggerOrNop(logger)
	if evaluator == nil {
		evaluator = NewCriterionEvaluator(logger)
	}
	return &DefaultDataset{
		class:     class,
		name:      class.Name(),
		evaluator: evaluator,
		metrics:   metrics,
		logger:    logger,
		rows:      make(map[int64]any),
		indexes:   make(map[string]*uniqueIndex),
	}, nil
}

func (d *DefaultDataset) Name() string { return d.name }

func (d *DefaultDataset) Class() models.DomainClass { return d.class }

func (d *DefaultDataset) NextID() int64 {
	return d.sequence.Add(1)
}

func (d *DefaultDataset) Save(entity any) (any, error) {
	if err := d.checkInstance(entity); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.saveLocked(entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (d *DefaultDataset) SaveUnique(entity any, groups [][]string) (any, error) {
	if err := d.checkInstance(entity); err != nil {
		return nil, err
	}
	id, err := d.class.IdentityOf(entity)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		for _, name := range group {
			if _, ok := d.class.Property(name); !ok {
				return nil, &validation.PropertyError{Owner: d.name, Property: name}
			}
		}
		ix := d.indexLocked(group)
		key, values, ok := ix.keyOf(d.class, entity)
		if !ok {
			continue
		}
		other, found := ix.conflict(key, id)
		if !found && ix.refresh(d.class, d.rows) {
			other, found = ix.conflict(key, id)
		}
		if found {
			d.metrics.rejection(d.name, ReasonUnique)
			return nil, &NotUniqueError{Class: d.name, Properties: append([]string(nil), group...), Values: values, ConflictID: other}
		}
	}

	if err := d.saveLocked(entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (d *DefaultDataset) saveLocked(entity any) error {
	id, err := d.class.IdentityOf(entity)
	if err != nil {
		return err
	}
	if id == 0 {
		id = d.NextID()
		if err := d.class.SetIdentity(entity, id); err != nil {
			return err
		}
	} else {
		d.bumpSequence(id)
	}

	if _, exists := d.rows[id]; exists {
		d.logger.Debugw("Updating entity", "dataset", d.name, "id", id)
		d.metrics.operation(d.name, OperationUpdate)
	} else {
		d.logger.Debugw("Saving entity", "dataset", d.name, "id", id)
		d.metrics.operation(d.name, OperationInsert)
		i := sort.Search(len(d.ids), func(i int) bool { return d.ids[i] >= id })
		d.ids = append(d.ids, 0)
		copy(d.ids[i+1:], d.ids[i:])
		d.ids[i] = id
	}
	d.rows[id] = entity
	for _, ix := range d.indexes {
		ix.put(d.class, id, entity)
	}
	return nil
}

// bumpSequence moves the sequence past an explicitly assigned identity.
func (d *DefaultDataset) bumpSequence(id int64) {
	for {
		current := d.sequence.Load()
		if current >= id || d.sequence.CompareAndSwap(current, id) {
			return
		}
	}
}

// indexLocked returns the index over group, building it from the stored rows
// on first use.
func (d *DefaultDataset) indexLocked(group []string) *uniqueIndex {
	name := indexName(group)
	if ix, ok := d.indexes[name]; ok {
		return ix
	}
	ix := newUniqueIndex(append([]string(nil), group...))
	for _, id := range d.ids {
		ix.put(d.class, id, d.rows[id])
	}
	d.indexes[name] = ix
	return ix
}

func (d *DefaultDataset) Remove(entity any) (any, error) {
	if err := d.checkInstance(entity); err != nil {
		return nil, err
	}
	id, err := d.class.IdentityOf(entity)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger.Debugw("Removing entity", "dataset", d.name, "id", id)
	d.metrics.operation(d.name, OperationRemove)
	if _, ok := d.rows[id]; !ok {
		return entity, nil
	}
	delete(d.rows, id)
	i := sort.Search(len(d.ids), func(i int) bool { return d.ids[i] >= id })
	if i < len(d.ids) && d.ids[i] == id {
		d.ids = append(d.ids[:i], d.ids[i+1:]...)
	}
	for _, ix := range d.indexes {
		ix.remove(id)
	}
	return entity, nil
}

func (d *DefaultDataset) List() []any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.metrics.operation(d.name, OperationList)
	entities := make([]any, 0, len(d.ids))
	for _, id := range d.ids {
		entities = append(entities, d.rows[id])
	}
	return entities
}

// ListWith pages through the rows in identity order, then sorts the page.
func (d *DefaultDataset) ListWith(opts Options) ([]any, error) {
	sortBy, err := d.sortProperty(opts)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	d.metrics.operation(d.name, OperationList)
	var entities []any
	if offset := opts.offset(); offset < len(d.ids) {
		max := opts.limit()
		for _, id := range d.ids[offset:] {
			if len(entities) >= max {
				break
			}
			entities = append(entities, d.rows[id])
		}
	}
	d.mu.RUnlock()

	d.sortEntities(entities, sortBy, opts.Order)
	return entities, nil
}

func (d *DefaultDataset) Fetch(id int64) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.metrics.operation(d.name, OperationFetch)
	entity, ok := d.rows[id]
	return entity, ok
}

func (d *DefaultDataset) QueryExample(example any, opts Options) ([]any, error) {
	params, err := d.exampleParams(example)
	if err != nil {
		return nil, err
	}
	return d.Query(params, opts)
}

// Query returns the rows whose properties equal every value of params. An
// empty params matches nothing.
func (d *DefaultDataset) Query(params map[string]any, opts Options) ([]any, error) {
	properties, err := d.paramProperties(params)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return []any{}, nil
	}
	return d.query(opts, func(entity any) bool {
		return matchesAll(properties, params, entity)
	})
}

func (d *DefaultDataset) QueryCriterion(c Criterion, opts Options) ([]any, error) {
	if c == nil {
		return nil, fmt.Errorf("query on %s requires a criterion", d.name)
	}
	return d.query(opts, func(entity any) bool {
		return d.evaluator.Eval(d.class, entity, c)
	})
}

// query filters the rows in identity order, honouring offset and max while
// scanning, then sorts the matches.
func (d *DefaultDataset) query(opts Options, match func(any) bool) ([]any, error) {
	sortBy, err := d.sortProperty(opts)
	if err != nil {
		return nil, err
	}

	entities := []any{}
	max := opts.limit()
	skipped := 0

	d.mu.RLock()
	d.metrics.operation(d.name, OperationQuery)
	for _, id := range d.ids {
		entity := d.rows[id]
		if !match(entity) {
			continue
		}
		if skipped < opts.offset() {
			skipped++
			continue
		}
		entities = append(entities, entity)
		if len(entities) >= max {
			break
		}
	}
	d.mu.RUnlock()

	d.sortEntities(entities, sortBy, opts.Order)
	return entities, nil
}

func (d *DefaultDataset) FirstExample(example any) (any, error) {
	params, err := d.exampleParams(example)
	if err != nil {
		return nil, err
	}
	return d.First(params)
}

func (d *DefaultDataset) First(params map[string]any) (any, error) {
	properties, err := d.paramProperties(params)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, ErrNotFound
	}
	return d.first(func(entity any) bool {
		return matchesAll(properties, params, entity)
	})
}

func (d *DefaultDataset) FirstCriterion(c Criterion) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("query on %s requires a criterion", d.name)
	}
	return d.first(func(entity any) bool {
		return d.evaluator.Eval(d.class, entity, c)
	})
}

func (d *DefaultDataset) first(match func(any) bool) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.metrics.operation(d.name, OperationQuery)
	for _, id := range d.ids {
		if entity := d.rows[id]; match(entity) {
			return entity, nil
		}
	}
	return nil, ErrNotFound
}

func (d *DefaultDataset) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.ids)
}

// Clear drops every row. The identity sequence keeps counting.
func (d *DefaultDataset) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metrics.operation(d.name, OperationClear)
	d.rows = make(map[int64]any)
	d.ids = nil
	d.indexes = make(map[string]*uniqueIndex)
}

// FindOther reports whether a row other than target holds values. It lets
// a unique constraint consult the dataset during validation.
func (d *DefaultDataset) FindOther(target any, values map[string]any) bool {
	properties, err := d.paramProperties(values)
	if err != nil || len(properties) == 0 {
		return false
	}
	id, _ := d.class.IdentityOf(target)

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rowID := range d.ids {
		if rowID == id {
			continue
		}
		if matchesAll(properties, values, d.rows[rowID]) {
			return true
		}
	}
	return false
}

// snapshotRows returns a property map per row in identity order.
func (d *DefaultDataset) snapshotRows() []map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows := make([]map[string]any, 0, len(d.ids))
	for _, id := range d.ids {
		rows = append(rows, d.class.ToMap(d.rows[id]))
	}
	return rows
}

func (d *DefaultDataset) checkInstance(entity any) error {
	if entity == nil {
		return fmt.Errorf("%s: entity cannot be nil", d.name)
	}
	if !d.class.IsInstance(entity) {
		return fmt.Errorf("%T is not an instance of %s", entity, d.name)
	}
	return nil
}

func (d *DefaultDataset) paramProperties(params map[string]any) ([]models.DomainProperty, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	properties := make([]models.DomainProperty, 0, len(names))
	for _, name := range names {
		p, ok := d.class.Property(name)
		if !ok {
			return nil, &validation.PropertyError{Owner: d.name, Property: name}
		}
		properties = append(properties, p)
	}
	return properties, nil
}

// exampleParams collects the persistent properties of example that hold a
// non-zero value.
func (d *DefaultDataset) exampleParams(example any) (map[string]any, error) {
	if err := d.checkInstance(example); err != nil {
		return nil, err
	}
	params := make(map[string]any)
	for _, p := range d.class.PersistentProperties() {
		v := p.Value(example)
		if v == nil || reflect.ValueOf(v).IsZero() {
			continue
		}
		params[p.Name()] = v
	}
	return params, nil
}

// matchesAll compares every property even after a mismatch.
func matchesAll(properties []models.DomainProperty, params map[string]any, entity any) bool {
	allMatch := true
	for _, p := range properties {
		allMatch = helpers.Equals(params[p.Name()], p.Value(entity)) && allMatch
	}
	return allMatch
}

func (d *DefaultDataset) sortProperty(opts Options) (models.DomainProperty, error) {
	name := opts.sortProperty()
	p, ok := d.class.Property(name)
	if !ok {
		return nil, fmt.Errorf("cannot sort %s: %w", d.name, &validation.PropertyError{Owner: d.name, Property: name})
	}
	return p, nil
}

// sortEntities orders entities by one property. nil sorts first; values that
// cannot be compared keep their relative order.
func (d *DefaultDataset) sortEntities(entities []any, by models.DomainProperty, order Order) {
	sort.SliceStable(entities, func(i, j int) bool {
		c, err := helpers.Compare(by.Value(entities[i]), by.Value(entities[j]))
		if err != nil {
			return false
		}
		if order == Desc {
			return c > 0
		}
		return c < 0
	})
}
