package datastore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"griffon/src/constraints"
	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/validation"
)

// UniqueMetaConstraint is the meta constraint that marks a property unique
// when no unique constraint is attached.
const UniqueMetaConstraint = "unique"

// SaveParams tune a single DomainHandler.Save call.
type SaveParams struct {
	// Validate runs the class constraints before saving.
	Validate bool

	// FailOnError turns validation and uniqueness failures into a
	// *validation.ValidationError instead of field errors.
	FailOnError bool

	// Errors receives the validation failures. When nil the entity's own
	// errors are used if it carries any, otherwise a fresh sink.
	Errors validation.Errors
}

// DomainHandler persists domain entities into the datasets of a Datastore,
// validating them against the constrained properties registered for their
// class.
type DomainHandler struct {
	datastore   *Datastore
	validator   *constraints.Validator
	failOnError bool
	metrics     *Metrics
	logger      *zap.SugaredLogger

	mu          sync.RWMutex
	classes     map[string]models.DomainClass
	constrained map[string]*constraints.ConstrainedProperties
}

func NewDomainHandler(datastore *Datastore, validator *constraints.Validator, failOnError bool, metrics *Metrics, logger *zap.SugaredLogger) *DomainHandler {
	logger = helpers.LoggerOrNop(logger)
	if validator == nil {
		validator = constraints.NewValidator(logger)
	}
	return &DomainHandler{
		datastore:   datastore,
		validator:   validator,
		failOnError: failOnError,
		metrics:     metrics,
		logger:      logger,
		classes:     make(map[string]models.DomainClass),
		constrained: make(map[string]*constraints.ConstrainedProperties),
	}
}

// Register makes class known to the handler. properties may be nil for a
// class without constraints.
func (h *DomainHandler) Register(class models.DomainClass, properties *constraints.ConstrainedProperties) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classes[class.Name()] = class
	h.constrained[class.Name()] = properties
}

// ConstrainedProperties returns the constraints registered for class.
func (h *DomainHandler) ConstrainedProperties(class models.DomainClass) (*constraints.ConstrainedProperties, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp, ok := h.constrained[class.Name()]
	return cp, ok && cp != nil
}

// Datastore returns the backing datastore.
func (h *DomainHandler) Datastore() *Datastore { return h.datastore }

// DefaultSaveParams validates and uses the configured fail-on-error mode.
func (h *DomainHandler) DefaultSaveParams() SaveParams {
	return SaveParams{Validate: true, FailOnError: h.failOnError}
}

// ClassOf returns the registered class entity is an instance of.
func (h *DomainHandler) ClassOf(entity any) (models.DomainClass, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, class := range h.classes {
		if class.IsInstance(entity) {
			return class, nil
		}
	}
	return nil, fmt.Errorf("no domain class registered for %T", entity)
}

// Save validates entity and stores it. It returns the errors entity was
// validated into; the entity was stored when the returned error is nil and
// the errors are empty. Entities without an identity are inserted and
// receive one, the others replace their stored row.
func (h *DomainHandler) Save(entity any, params SaveParams) (validation.Errors, error) {
	class, err := h.ClassOf(entity)
	if err != nil {
		return nil, err
	}
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	errs := h.errorsFor(class, entity, params)
	properties, _ := h.ConstrainedProperties(class)

	if params.Validate {
		errs.ClearAllErrors()
		if !h.validator.Validate(properties, entity, errs) {
			h.metrics.rejection(class.Name(), ReasonValidation)
			if params.FailOnError {
				return errs, &validation.ValidationError{
					Message: fmt.Sprintf("an instance of %s failed validation", class.Name()),
					Errors:  errs,
				}
			}
			h.logger.Debugw("Entity failed validation", "dataset", class.Name(), "errors", errs.ErrorCount())
			return errs, nil
		}
	}

	var groups [][]string
	if params.Validate {
		groups = uniqueGroups(properties)
	}
	if _, err := ds.SaveUnique(entity, groups); err != nil {
		var notUnique *NotUniqueError
		if !errors.As(err, &notUnique) {
			return errs, err
		}
		property := notUnique.Properties[0]
		value := notUnique.Values[0]
		if params.FailOnError {
			return errs, &validation.ValidationError{
				Message: fmt.Sprintf("constraint 'unique' failed validation for property '%s' with value %v", property, value),
				Errors:  errs,
				Err:     err,
			}
		}
		args := []any{property, class.Name(), value}
		errs.RejectField(property, value, UniqueMetaConstraint, args,
			validation.DefaultMessages[validation.DefaultNotUniqueMessageCode])
		return errs, nil
	}
	return errs, nil
}

func (h *DomainHandler) errorsFor(class models.DomainClass, entity any, params SaveParams) validation.Errors {
	if params.Errors != nil {
		return params.Errors
	}
	if v, ok := entity.(constraints.Validateable); ok && v.Errors() != nil {
		return v.Errors()
	}
	return validation.NewErrors(class.ShortName(), models.PropertyTypes(class))
}

// uniqueGroups collects the property groups that must be unique: the key of
// every enabled unique constraint, and the single property of every unique
// meta constraint.
func uniqueGroups(properties *constraints.ConstrainedProperties) [][]string {
	if properties == nil {
		return nil
	}
	var groups [][]string
	for _, cp := range properties.All() {
		if u, ok := cp.Unique(); ok {
			groups = append(groups, u.Properties())
			continue
		}
		if v, ok := cp.MetaConstraintValue(UniqueMetaConstraint); ok {
			if b, isBool := v.(bool); isBool && b {
				groups = append(groups, []string{cp.PropertyName()})
			}
		}
	}
	return groups
}

// Delete removes entity from its dataset.
func (h *DomainHandler) Delete(entity any) error {
	class, err := h.ClassOf(entity)
	if err != nil {
		return err
	}
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return err
	}
	_, err = ds.Remove(entity)
	return err
}

func (h *DomainHandler) Get(class models.DomainClass, id int64) (any, bool, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, false, err
	}
	entity, ok := ds.Fetch(id)
	return entity, ok, nil
}

func (h *DomainHandler) Exists(class models.DomainClass, id int64) (bool, error) {
	_, ok, err := h.Get(class, id)
	return ok, err
}

// GetAll fetches the given identities, skipping missing ones, sorted by
// identity. Without identities it returns every row.
func (h *DomainHandler) GetAll(class models.DomainClass, ids ...int64) ([]any, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ds.List(), nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	entities := make([]any, 0, len(sorted))
	for _, id := range sorted {
		if entity, ok := ds.Fetch(id); ok {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

func (h *DomainHandler) List(class models.DomainClass, opts Options) ([]any, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.ListWith(opts)
}

// ListOrderBy lists rows sorted by property, overriding opts.Sort.
func (h *DomainHandler) ListOrderBy(class models.DomainClass, property string, opts Options) ([]any, error) {
	opts.Sort = property
	return h.List(class, opts)
}

func (h *DomainHandler) Count(class models.DomainClass) (int, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return 0, err
	}
	return ds.Size(), nil
}

// FindWhere returns the first row matching every value of params.
func (h *DomainHandler) FindWhere(class models.DomainClass, params map[string]any) (any, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.First(params)
}

func (h *DomainHandler) FindAllWhere(class models.DomainClass, params map[string]any, opts Options) ([]any, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.Query(params, opts)
}

func (h *DomainHandler) Find(class models.DomainClass, c Criterion) (any, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.FirstCriterion(c)
}

func (h *DomainHandler) FindAll(class models.DomainClass, c Criterion, opts Options) ([]any, error) {
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.QueryCriterion(c, opts)
}

// FindByExample returns the first row whose properties equal the non-zero
// properties of example.
func (h *DomainHandler) FindByExample(example any) (any, error) {
	class, err := h.ClassOf(example)
	if err != nil {
		return nil, err
	}
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.FirstExample(example)
}

func (h *DomainHandler) FindAllByExample(example any, opts Options) ([]any, error) {
	class, err := h.ClassOf(example)
	if err != nil {
		return nil, err
	}
	ds, err := h.datastore.Dataset(class)
	if err != nil {
		return nil, err
	}
	return ds.QueryExample(example, opts)
}

// First returns the row with the smallest value of property, identity when
// property is empty.
func (h *DomainHandler) First(class models.DomainClass, property string) (any, error) {
	return h.edge(class, property, Asc)
}

// Last returns the row with the largest value of property, identity when
// property is empty.
func (h *DomainHandler) Last(class models.DomainClass, property string) (any, error) {
	return h.edge(class, property, Desc)
}

func (h *DomainHandler) edge(class models.DomainClass, property string, order Order) (any, error) {
	if property == "" {
		property = models.IdentityProperty
	}
	entities, err := h.List(class, Options{Sort: property, Order: order})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNotFound
	}
	return entities[0], nil
}

// FindOrCreateWhere returns the first row matching params, or a new unsaved
// entity holding params.
func (h *DomainHandler) FindOrCreateWhere(class models.DomainClass, params map[string]any) (any, error) {
	entity, err := h.FindWhere(class, params)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return newEntity(class, params)
}

// FindOrSaveWhere is FindOrCreateWhere followed by a save of the new
// entity. The returned errors are nil when an existing row was found.
func (h *DomainHandler) FindOrSaveWhere(class models.DomainClass, params map[string]any, save SaveParams) (any, validation.Errors, error) {
	entity, err := h.FindWhere(class, params)
	if err == nil {
		return entity, nil, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}
	if entity, err = newEntity(class, params); err != nil {
		return nil, nil, err
	}
	errs, err := h.Save(entity, save)
	return entity, errs, err
}

func newEntity(class models.DomainClass, params map[string]any) (any, error) {
	entity := class.New()
	for _, p := range class.Properties() {
		v, ok := params[p.Name()]
		if !ok || v == nil {
			continue
		}
		if err := p.SetValue(entity, v); err != nil {
			return nil, err
		}
	}
	return entity, nil
}
