package constraints

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"griffon/src/helpers"
	"griffon/src/models"
	"griffon/src/validation"
)

// ConstrainedProperty holds the constraints declared for one property of a
// domain class and validates values against them.
//
// Constraints run in two phases. Vetoing constraints (blank, nullable) run
// first, in attachment order, and the first one that vetoes ends validation.
// The remaining constraints then all run, each recording its own errors.
type ConstrainedProperty struct {
	mu           sync.RWMutex
	owner        models.DomainClass
	propertyName string
	propertyType reflect.Type
	registry     *Registry
	messages     validation.MessageSource
	logger       *zap.SugaredLogger

	applied map[string]Constraint
	names   []string

	// phases, rebuilt whenever a constraint is attached or removed
	vetoing []VetoingConstraint
	delayed []Constraint

	meta            metaAttributes
	metaConstraints map[string]any
}

// NewConstrainedProperty creates an empty constrained property. A nil
// registry behaves like an empty one.
func NewConstrainedProperty(owner models.DomainClass, propertyName string, propertyType reflect.Type,
	registry *Registry, logger *zap.SugaredLogger) (*ConstrainedProperty, error) {
	if owner == nil {
		return nil, fmt.Errorf("constrained property %q: owner cannot be nil", propertyName)
	}
	if helpers.IsBlank(propertyName) {
		return nil, fmt.Errorf("constrained property of %s: property name cannot be blank", owner.Name())
	}
	if propertyType == nil {
		return nil, fmt.Errorf("constrained property %s.%s: property type cannot be nil", owner.Name(), propertyName)
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &ConstrainedProperty{
		owner:           owner,
		propertyName:    propertyName,
		propertyType:    propertyType,
		registry:        registry,
		logger:          helpers.LoggerOrNop(logger),
		applied:         make(map[string]Constraint),
		meta:            defaultMetaAttributes(),
		metaConstraints: make(map[string]any),
	}, nil
}

func (cp *ConstrainedProperty) Owner() models.DomainClass  { return cp.owner }
func (cp *ConstrainedProperty) PropertyName() string       { return cp.propertyName }
func (cp *ConstrainedProperty) PropertyType() reflect.Type { return cp.propertyType }

// SetMessageSource sets the message source of the property and of every
// applied constraint.
func (cp *ConstrainedProperty) SetMessageSource(source validation.MessageSource) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.messages = source
	for _, c := range cp.applied {
		c.SetMessageSource(source)
	}
}

// Validate checks value against every applied constraint, recording
// failures in errs.
func (cp *ConstrainedProperty) Validate(target, value any, errs validation.Errors) {
	cp.mu.RLock()
	vetoing, delayed := cp.vetoing, cp.delayed
	cp.mu.RUnlock()

	for _, c := range vetoing {
		if c.ValidateWithVetoing(target, value, errs) {
			return
		}
	}
	for _, c := range delayed {
		c.Validate(target, value, errs)
	}
}

// SupportsConstraint reports whether the named constraint can be applied to
// this property. Names unknown to the registry are supported when they are
// meta attributes.
func (cp *ConstrainedProperty) SupportsConstraint(name string) (bool, error) {
	if !cp.registry.Has(name) {
		_, ok := ParseMetaAttribute(name)
		return ok, nil
	}
	c, err := cp.registry.instantiate(name, cp.owner, cp.propertyName, false)
	if err != nil {
		cp.logger.Errorw("Exception thrown instantiating constraint",
			"constraint", name, "class", cp.owner.Name(), "error", err)
		return false, &validation.ConstraintError{Constraint: name, Owner: cp.owner.Name(), Property: cp.propertyName, Err: err}
	}
	return c != nil && c.Supports(cp.propertyType), nil
}

// ApplyConstraint applies a constraint by name. For registered constraints a
// nil value removes the constraint, and a switched off toggle (for example
// email: false) is not attached. Meta attributes are written directly. Any
// other name is not supported.
func (cp *ConstrainedProperty) ApplyConstraint(name string, value any) error {
	if cp.registry.Has(name) {
		if value == nil {
			cp.mu.Lock()
			cp.removeLocked(name)
			cp.mu.Unlock()
			return nil
		}
		c, err := cp.registry.instantiate(name, cp.owner, cp.propertyName, true)
		if err == nil && c != nil {
			err = c.SetParameter(value)
		}
		if err != nil {
			cp.logger.Errorw("Exception thrown applying constraint",
				"constraint", name, "class", cp.owner.Name(), "property", cp.propertyName, "value", value, "error", err)
			return &validation.ConstraintError{Constraint: name, Owner: cp.owner.Name(), Property: cp.propertyName, Value: value, Err: err}
		}
		if c == nil {
			return nil
		}
		cp.mu.Lock()
		defer cp.mu.Unlock()
		if t, ok := c.(Toggle); ok && !t.Enabled() {
			cp.removeLocked(name)
			return nil
		}
		c.SetMessageSource(cp.messages)
		cp.putLocked(name, c)
		return nil
	}

	if attr, ok := ParseMetaAttribute(name); ok {
		cp.mu.Lock()
		defer cp.mu.Unlock()
		if err := cp.meta.set(attr, value); err != nil {
			return &validation.ConstraintError{Constraint: name, Owner: cp.owner.Name(), Property: cp.propertyName, Value: value, Err: err}
		}
		return nil
	}

	return &validation.ConstraintError{
		Constraint: name,
		Owner:      cp.owner.Name(),
		Property:   cp.propertyName,
		Value:      value,
		Err:        fmt.Errorf("%w for property of type [%s]", validation.ErrConstraintNotSupported, cp.propertyType),
	}
}

// HasAppliedConstraint reports whether a constraint named name is attached.
func (cp *ConstrainedProperty) HasAppliedConstraint(name string) bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	_, ok := cp.applied[name]
	return ok
}

// AppliedConstraint returns the constraint attached under name.
func (cp *ConstrainedProperty) AppliedConstraint(name string) (Constraint, bool) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	c, ok := cp.applied[name]
	return c, ok
}

// AppliedConstraints returns the attached constraints in attachment order.
func (cp *ConstrainedProperty) AppliedConstraints() []Constraint {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	out := make([]Constraint, 0, len(cp.names))
	for _, n := range cp.names {
		out = append(out, cp.applied[n])
	}
	return out
}

// AddMetaConstraint records a value for a constraint no registered factory
// handles.
func (cp *ConstrainedProperty) AddMetaConstraint(name string, value any) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.metaConstraints[name] = value
}

func (cp *ConstrainedProperty) MetaConstraintValue(name string) (any, bool) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	v, ok := cp.metaConstraints[name]
	return v, ok
}

// Max returns the effective maximum: the lower of the max constraint and
// the upper bound of the range constraint, whichever are present.
func (cp *ConstrainedProperty) Max() any {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	var maxValue, rangeHigh any
	if c, ok := cp.applied[MaxConstraintName].(*MaxConstraint); ok {
		maxValue = c.MaxValue()
	}
	if c, ok := cp.applied[RangeConstraintName].(*RangeConstraint); ok {
		rangeHigh = c.Range().To
	}
	switch {
	case maxValue != nil && rangeHigh != nil:
		if cmp, err := helpers.Compare(maxValue, rangeHigh); err == nil && cmp < 0 {
			return maxValue
		}
		return rangeHigh
	case maxValue != nil:
		return maxValue
	}
	return rangeHigh
}

// SetMax sets the max constraint; nil removes it. It is ignored, with a
// warning, while a range constraint is set.
func (cp *ConstrainedProperty) SetMax(max any) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if max == nil {
		cp.removeLocked(MaxConstraintName)
		return nil
	}
	if _, ok := cp.applied[RangeConstraintName]; ok {
		cp.logger.Warnw("Range constraint already set, ignoring constraint",
			"constraint", MaxConstraintName, "property", cp.propertyName, "class", cp.owner.Name(), "value", max)
		return nil
	}
	return cp.setLocked(MaxConstraintName, NewMaxConstraint, max)
}

// Min returns the effective minimum: the higher of the min constraint and
// the lower bound of the range constraint, whichever are present.
func (cp *ConstrainedProperty) Min() any {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	var minValue, rangeLow any
	if c, ok := cp.applied[MinConstraintName].(*MinConstraint); ok {
		minValue = c.MinValue()
	}
	if c, ok := cp.applied[RangeConstraintName].(*RangeConstraint); ok {
		rangeLow = c.Range().From
	}
	switch {
	case minValue != nil && rangeLow != nil:
		if cmp, err := helpers.Compare(minValue, rangeLow); err == nil && cmp > 0 {
			return minValue
		}
		return rangeLow
	case minValue != nil:
		return minValue
	}
	return rangeLow
}

// SetMin sets the min constraint; nil removes it. It is ignored, with a
// warning, while a range constraint is set.
func (cp *ConstrainedProperty) SetMin(min any) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if min == nil {
		cp.removeLocked(MinConstraintName)
		return nil
	}
	if _, ok := cp.applied[RangeConstraintName]; ok {
		cp.logger.Warnw("Range constraint already set, ignoring constraint",
			"constraint", MinConstraintName, "property", cp.propertyName, "class", cp.owner.Name(), "value", min)
		return nil
	}
	return cp.setLocked(MinConstraintName, NewMinConstraint, min)
}

// Range returns the range constraint's range, or nil.
func (cp *ConstrainedProperty) Range() *Range {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[RangeConstraintName].(*RangeConstraint); ok {
		return c.Range()
	}
	return nil
}

// SetRange sets the range constraint; nil removes it. Max and min
// constraints are removed, with a warning.
func (cp *ConstrainedProperty) SetRange(r *Range) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for _, name := range []string{MaxConstraintName, MinConstraintName} {
		if _, ok := cp.applied[name]; ok {
			cp.logger.Warnw("Setting range constraint forced removal of constraint",
				"removed", name, "property", cp.propertyName, "class", cp.owner.Name())
			cp.removeLocked(name)
		}
	}
	if r == nil {
		cp.removeLocked(RangeConstraintName)
		return nil
	}
	return cp.setLocked(RangeConstraintName, NewRangeConstraint, r)
}

// Size returns the size constraint's range, or nil.
func (cp *ConstrainedProperty) Size() *Range {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[SizeConstraintName].(*SizeConstraint); ok {
		return c.Range()
	}
	return nil
}

// SetSize sets the size constraint; nil removes it. MaxSize and minSize
// constraints are removed, with a warning.
func (cp *ConstrainedProperty) SetSize(r *Range) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for _, name := range []string{MaxSizeConstraintName, MinSizeConstraintName} {
		if _, ok := cp.applied[name]; ok {
			cp.logger.Warnw("Setting size constraint forced removal of constraint",
				"removed", name, "property", cp.propertyName, "class", cp.owner.Name())
			cp.removeLocked(name)
		}
	}
	if r == nil {
		cp.removeLocked(SizeConstraintName)
		return nil
	}
	return cp.setLocked(SizeConstraintName, NewSizeConstraint, r)
}

// MaxSize returns the effective maximum size, the lower of the maxSize
// constraint and the upper bound of the size constraint. ok is false when
// neither is present.
func (cp *ConstrainedProperty) MaxSize() (size int, ok bool) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	maxSize, hasMax := cp.applied[MaxSizeConstraintName].(*MaxSizeConstraint)
	sizeRange, hasSize := cp.applied[SizeConstraintName].(*SizeConstraint)
	if !hasMax && !hasSize {
		return 0, false
	}
	a, b := math.MaxInt, math.MaxInt
	if hasMax {
		a = maxSize.MaxSize()
	}
	if hasSize {
		b = sizeRange.to()
	}
	return min(a, b), true
}

func (cp *ConstrainedProperty) SetMaxSize(size int) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.setLocked(MaxSizeConstraintName, NewMaxSizeConstraint, size)
}

// MinSize returns the effective minimum size, the higher of the minSize
// constraint and the lower bound of the size constraint. ok is false when
// neither is present.
func (cp *ConstrainedProperty) MinSize() (size int, ok bool) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	minSize, hasMin := cp.applied[MinSizeConstraintName].(*MinSizeConstraint)
	sizeRange, hasSize := cp.applied[SizeConstraintName].(*SizeConstraint)
	if !hasMin && !hasSize {
		return 0, false
	}
	a, b := math.MinInt, math.MinInt
	if hasMin {
		a = minSize.MinSize()
	}
	if hasSize {
		b = sizeRange.from()
	}
	return max(a, b), true
}

func (cp *ConstrainedProperty) SetMinSize(size int) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.setLocked(MinSizeConstraintName, NewMinSizeConstraint, size)
}

// InList returns the allowed values, or nil.
func (cp *ConstrainedProperty) InList() []any {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[InListConstraintName].(*InListConstraint); ok {
		return c.List()
	}
	return nil
}

// SetInList sets the inList constraint; nil removes it.
func (cp *ConstrainedProperty) SetInList(list []any) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if list == nil {
		cp.removeLocked(InListConstraintName)
		return nil
	}
	return cp.setLocked(InListConstraintName, NewInListConstraint, list)
}

// Scale returns the scale constraint's number of decimal places.
func (cp *ConstrainedProperty) Scale() (int, bool) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[ScaleConstraintName].(*ScaleConstraint); ok {
		return c.Scale(), true
	}
	return 0, false
}

// Blank reports whether blank values are allowed. Without a blank
// constraint they are.
func (cp *ConstrainedProperty) Blank() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[BlankConstraintName].(*BlankConstraint); ok {
		return c.Blank()
	}
	return true
}

func (cp *ConstrainedProperty) SetBlank(blank bool) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if err := cp.requireString(BlankConstraintName); err != nil {
		return err
	}
	return cp.setLocked(BlankConstraintName, NewBlankConstraint, blank)
}

func (cp *ConstrainedProperty) Email() bool {
	return cp.HasAppliedConstraint(EmailConstraintName)
}

func (cp *ConstrainedProperty) SetEmail(email bool) error {
	return cp.setToggle(EmailConstraintName, NewEmailConstraint, email)
}

func (cp *ConstrainedProperty) CreditCard() bool {
	return cp.HasAppliedConstraint(CreditCardConstraintName)
}

func (cp *ConstrainedProperty) SetCreditCard(creditCard bool) error {
	return cp.setToggle(CreditCardConstraintName, NewCreditCardConstraint, creditCard)
}

func (cp *ConstrainedProperty) URL() bool {
	return cp.HasAppliedConstraint(URLConstraintName)
}

func (cp *ConstrainedProperty) SetURL(url bool) error {
	return cp.setToggle(URLConstraintName, NewURLConstraint, url)
}

// Matches returns the regular expression values must match, or "".
func (cp *ConstrainedProperty) Matches() string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[MatchesConstraintName].(*MatchesConstraint); ok {
		return c.Regex()
	}
	return ""
}

// SetMatches sets the matches constraint; an empty expression removes it.
func (cp *ConstrainedProperty) SetMatches(regex string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if err := cp.requireString(MatchesConstraintName); err != nil {
		return err
	}
	if regex == "" {
		cp.removeLocked(MatchesConstraintName)
		return nil
	}
	return cp.setLocked(MatchesConstraintName, NewMatchesConstraint, regex)
}

// NotEqual returns the forbidden value, or nil.
func (cp *ConstrainedProperty) NotEqual() any {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[NotEqualConstraintName].(*NotEqualConstraint); ok {
		return c.NotEqualTo()
	}
	return nil
}

// SetNotEqual sets the notEqual constraint; nil removes it.
func (cp *ConstrainedProperty) SetNotEqual(v any) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if v == nil {
		cp.removeLocked(NotEqualConstraintName)
		return nil
	}
	return cp.setLocked(NotEqualConstraintName, NewNotEqualConstraint, v)
}

// Nullable reports whether nil values are allowed. Without a nullable
// constraint it is false.
func (cp *ConstrainedProperty) Nullable() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if c, ok := cp.applied[NullableConstraintName].(*NullableConstraint); ok {
		return c.Nullable()
	}
	return false
}

func (cp *ConstrainedProperty) SetNullable(nullable bool) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.setLocked(NullableConstraintName, NewNullableConstraint, nullable)
}

// Unique returns the unique constraint, if one is attached and enabled.
func (cp *ConstrainedProperty) Unique() (*UniqueConstraint, bool) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	c, ok := cp.applied[UniqueConstraintName].(*UniqueConstraint)
	if !ok || !c.Enabled() {
		return nil, false
	}
	return c, true
}

func (cp *ConstrainedProperty) Display() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.display
}

func (cp *ConstrainedProperty) SetDisplay(display bool) { cp.setMeta(MetaDisplay, display) }

func (cp *ConstrainedProperty) Editable() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.editable
}

func (cp *ConstrainedProperty) SetEditable(editable bool) { cp.setMeta(MetaEditable, editable) }

func (cp *ConstrainedProperty) Enabled() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.enabled
}

func (cp *ConstrainedProperty) SetEnabled(enabled bool) { cp.setMeta(MetaEnabled, enabled) }

func (cp *ConstrainedProperty) Password() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.password
}

func (cp *ConstrainedProperty) SetPassword(password bool) { cp.setMeta(MetaPassword, password) }

func (cp *ConstrainedProperty) Format() string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.format
}

func (cp *ConstrainedProperty) SetFormat(format string) { cp.setMeta(MetaFormat, format) }

func (cp *ConstrainedProperty) Widget() string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.widget
}

func (cp *ConstrainedProperty) SetWidget(widget string) { cp.setMeta(MetaWidget, widget) }

// Order is the position of the property in its class's constraint
// declarations; -1 when unset.
func (cp *ConstrainedProperty) Order() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.meta.order
}

func (cp *ConstrainedProperty) SetOrder(order int) { cp.setMeta(MetaOrder, order) }

func (cp *ConstrainedProperty) Attributes() map[string]any {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	out := make(map[string]any, len(cp.meta.attributes))
	for k, v := range cp.meta.attributes {
		out[k] = v
	}
	return out
}

func (cp *ConstrainedProperty) SetAttributes(attributes map[string]any) {
	cp.setMeta(MetaAttributes, attributes)
}

func (cp *ConstrainedProperty) String() string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return fmt.Sprintf("ConstrainedProperty{owningClass=%s, propertyName=%s, propertyType=%s, appliedConstraints=%v, metaConstraints=%v}",
		cp.owner.Name(), cp.propertyName, cp.propertyType, cp.names, cp.metaConstraints)
}

// setMeta writes a typed meta attribute; the typed setters cannot fail.
func (cp *ConstrainedProperty) setMeta(attr MetaAttribute, value any) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	_ = cp.meta.set(attr, value)
}

func (cp *ConstrainedProperty) setToggle(name string, factory Factory, on bool) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if err := cp.requireString(name); err != nil {
		return err
	}
	if !on {
		cp.removeLocked(name)
		return nil
	}
	return cp.setLocked(name, factory, on)
}

func (cp *ConstrainedProperty) requireString(constraint string) error {
	if !isStringType(cp.propertyType) {
		return &validation.PropertyError{Owner: cp.owner.Name(), Property: cp.propertyName, Constraint: constraint}
	}
	return nil
}

// setLocked updates the constraint attached under name, creating it with
// factory when absent.
func (cp *ConstrainedProperty) setLocked(name string, factory Factory, param any) error {
	c, ok := cp.applied[name]
	if !ok {
		c = factory()
		c.Bind(cp.owner, cp.propertyName)
	}
	if err := c.SetParameter(param); err != nil {
		var pe *validation.PropertyError
		if errors.As(err, &pe) {
			return err
		}
		return &validation.ConstraintError{Constraint: name, Owner: cp.owner.Name(), Property: cp.propertyName, Value: param, Err: err}
	}
	c.SetMessageSource(cp.messages)
	cp.putLocked(name, c)
	return nil
}

func (cp *ConstrainedProperty) putLocked(name string, c Constraint) {
	if _, exists := cp.applied[name]; !exists {
		cp.names = append(cp.names, name)
	}
	cp.applied[name] = c
	cp.rebuildPhasesLocked()
}

func (cp *ConstrainedProperty) removeLocked(name string) {
	if _, exists := cp.applied[name]; !exists {
		return
	}
	delete(cp.applied, name)
	for i, n := range cp.names {
		if n == name {
			cp.names = append(cp.names[:i:i], cp.names[i+1:]...)
			break
		}
	}
	cp.rebuildPhasesLocked()
}

// rebuildPhasesLocked splits the applied constraints into the vetoing and
// non-vetoing phases. New slices are built so that validations already
// running keep a consistent view.
func (cp *ConstrainedProperty) rebuildPhasesLocked() {
	vetoing := make([]VetoingConstraint, 0, 2)
	delayed := make([]Constraint, 0, len(cp.names))
	for _, n := range cp.names {
		c := cp.applied[n]
		if v, ok := c.(VetoingConstraint); ok {
			vetoing = append(vetoing, v)
		} else {
			delayed = append(delayed, c)
		}
	}
	cp.vetoing, cp.delayed = vetoing, delayed
}
