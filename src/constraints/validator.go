package constraints

import (
	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/validation"
)

// Validateable is implemented by entities that carry their own errors.
type Validateable interface {
	Errors() validation.Errors
}

// Validator checks entities against the constrained properties of their
// class.
type Validator struct {
	logger *zap.SugaredLogger
}

func NewValidator(logger *zap.SugaredLogger) *Validator {
	return &Validator{logger: helpers.LoggerOrNop(logger)}
}

// Validate validates the named properties of target, or every constrained
// property when names is empty, recording failures in errs. Names without
// a constrained property are skipped. It returns true when errs holds no
// errors afterwards.
func (v *Validator) Validate(properties *ConstrainedProperties, target any, errs validation.Errors, names ...string) bool {
	if properties == nil {
		return !errs.HasErrors()
	}
	var selected []*ConstrainedProperty
	if len(names) == 0 {
		selected = properties.All()
	} else {
		for _, name := range names {
			cp, ok := properties.Get(name)
			if !ok {
				v.logger.Debugw("Skipping unconstrained property", "property", name)
				continue
			}
			selected = append(selected, cp)
		}
	}

	for _, cp := range selected {
		p, ok := cp.Owner().Property(cp.PropertyName())
		if !ok {
			continue
		}
		cp.Validate(target, p.Value(target), errs)
	}
	return !errs.HasErrors()
}

// ValidateObject clears the errors target carries for the validated
// properties and validates it into them.
func (v *Validator) ValidateObject(properties *ConstrainedProperties, target Validateable, names ...string) bool {
	errs := target.Errors()
	if len(names) == 0 {
		errs.ClearAllErrors()
	} else {
		for _, name := range names {
			errs.ClearFieldErrorsFor(name)
		}
	}
	return v.Validate(properties, target, errs, names...)
}
