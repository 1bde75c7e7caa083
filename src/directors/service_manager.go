package directors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"griffon/src/constraints"
	"griffon/src/datastore"
	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/settings"
	"griffon/src/validation"
)

// ServiceManager owns the services of one Griffon instance: the constraint
// registry and evaluator, the validator and the datastore behind the domain
// handler.
type ServiceManager struct {
	Registry  *constraints.Registry
	Messages  *validation.MapMessageSource
	Evaluator *constraints.Evaluator
	Validator *constraints.Validator
	Datastore *datastore.Datastore
	Handler   *datastore.DomainHandler
	Metrics   *datastore.Metrics

	settings *settings.Arguments
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	classes map[string]models.DomainClass
}

// NewServiceManager wires the services for args. defaults are the default
// and shared constraints. reg may be nil to disable metrics.
func NewServiceManager(args *settings.Arguments, defaults constraints.DefaultConstraints, reg prometheus.Registerer, logger *zap.SugaredLogger) (*ServiceManager, error) {
	if args == nil {
		args = settings.GetSettings()
	}
	logger = helpers.LoggerOrNop(logger)

	sm := &ServiceManager{
		Registry: constraints.NewDefaultRegistry(),
		Messages: validation.NewDefaultMessageSource(),
		Metrics:  datastore.NewMetrics(reg),
		settings: args,
		logger:   logger,
		classes:  make(map[string]models.DomainClass),
	}
	sm.Datastore = datastore.NewDatastore(args.DatastoreName, nil, sm.Metrics, logger)

	// unique constraints look up conflicts in the datastore while validating
	if err := sm.Registry.Replace(constraints.UniqueConstraintName, constraints.UniqueConstraintFactory(sm.Datastore)); err != nil {
		return nil, fmt.Errorf("failed to register unique constraint: %w", err)
	}
	sm.Evaluator = constraints.NewEvaluator(sm.Registry, sm.Messages, defaults, logger)
	sm.Validator = constraints.NewValidator(logger)
	sm.Handler = datastore.NewDomainHandler(sm.Datastore, sm.Validator, args.FailOnError, sm.Metrics, logger)

	logger.Infow("ServiceManager initialized", "datastore", sm.Datastore.Name(), "failOnError", args.FailOnError)
	return sm, nil
}

// RegisterClass evaluates the constraints of class and makes it known to
// the domain handler.
func (sm *ServiceManager) RegisterClass(class models.DomainClass, defs constraints.ClassConstraints) (*constraints.ConstrainedProperties, error) {
	properties, err := sm.Evaluator.Evaluate(class, defs)
	if err != nil {
		return nil, err
	}
	sm.Handler.Register(class, properties)

	sm.mu.Lock()
	sm.classes[class.Name()] = class
	sm.mu.Unlock()

	if sm.settings.Verbose {
		sm.logger.Infow("Registered class", "class", class.Name(), "constrainedProperties", properties.Names())
	}
	return properties, nil
}

// RegisterConfig registers every class of cfg.
func (sm *ServiceManager) RegisterConfig(cfg *settings.Config) error {
	for _, name := range cfg.ClassNames() {
		class, defs, err := cfg.Class(name)
		if err != nil {
			return err
		}
		if _, err := sm.RegisterClass(class, defs); err != nil {
			return err
		}
	}
	return nil
}

// Class returns a registered class by name.
func (sm *ServiceManager) Class(name string) (models.DomainClass, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	class, ok := sm.classes[name]
	if !ok {
		return nil, fmt.Errorf("class %s is not registered", name)
	}
	return class, nil
}

// ClassNames returns the registered class names in sorted order.
func (sm *ServiceManager) ClassNames() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	names := make([]string, 0, len(sm.classes))
	for name := range sm.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classes returns the registered classes sorted by name.
func (sm *ServiceManager) Classes() []models.DomainClass {
	names := sm.ClassNames()
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]models.DomainClass, 0, len(names))
	for _, name := range names {
		out = append(out, sm.classes[name])
	}
	return out
}
