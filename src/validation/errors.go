package validation

import (
	"reflect"
	"sync"

	"griffon/src/helpers"
)

// Names of the properties reported through change events.
const (
	HasErrorsProperty  = "hasErrors"
	ErrorCountProperty = "errorCount"
)

// ObjectError is a global (object level) rejection.
type ObjectError struct {
	Codes          []string
	Args           []any
	DefaultMessage string
}

// Code returns the most specific code of the error, or "" when it has none.
func (e ObjectError) Code() string {
	if len(e.Codes) == 0 {
		return ""
	}
	return e.Codes[0]
}

// FieldError is a rejection of one property value.
type FieldError struct {
	ObjectError
	Field         string
	RejectedValue any
}

// ChangeEvent is fired when the observable state of an Errors sink changes.
type ChangeEvent struct {
	Property string
	OldValue any
	NewValue any
}

// Errors is the sink that constraints and validators reject values into.
type Errors interface {
	ObjectName() string
	HasErrors() bool
	HasGlobalErrors() bool
	HasFieldErrors() bool
	HasFieldErrorsFor(field string) bool
	FieldError(field string) (FieldError, bool)
	FieldErrors(field string) []FieldError
	FieldErrorCount(field string) int
	GlobalErrors() []ObjectError
	GlobalErrorCount() int
	ErrorCount() int
	AllFieldErrors() []FieldError

	AddFieldError(err FieldError)
	AddGlobalError(err ObjectError)
	Reject(code string, args []any, defaultMessage string)
	RejectField(field string, rejectedValue any, code string, args []any, defaultMessage string)
	ResolveMessageCodes(code, field string, fieldType reflect.Type) []string

	ClearAllErrors()
	ClearGlobalErrors()
	ClearFieldErrors()
	ClearFieldErrorsFor(field string)

	OnChange(listener func(ChangeEvent))
}

// DefaultErrors is a thread-safe Errors implementation that keeps field errors
// in the order their fields were first rejected.
type DefaultErrors struct {
	mu           sync.RWMutex
	id           string
	objectName   string
	fieldTypes   map[string]reflect.Type
	fieldOrder   []string
	fieldErrors  map[string][]FieldError
	objectErrors []ObjectError
	resolver     MessageCodesResolver
	listeners    []func(ChangeEvent)
}

var _ Errors = (*DefaultErrors)(nil)

// NewErrors creates an empty sink for objects named objectName. fieldTypes is
// used to resolve type specific message codes and may be nil.
func NewErrors(objectName string, fieldTypes map[string]reflect.Type) *DefaultErrors {
	return &DefaultErrors{
		id:          helpers.GenerateUUID(),
		objectName:  objectName,
		fieldTypes:  fieldTypes,
		fieldErrors: make(map[string][]FieldError),
		resolver:    DefaultMessageCodesResolver{},
	}
}

// ID identifies this sink in logs.
func (e *DefaultErrors) ID() string { return e.id }

func (e *DefaultErrors) ObjectName() string { return e.objectName }

// SetMessageCodesResolver replaces the resolver used by Reject and RejectField.
func (e *DefaultErrors) SetMessageCodesResolver(r MessageCodesResolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolver = r
}

func (e *DefaultErrors) HasErrors() bool {
	return e.ErrorCount() > 0
}

func (e *DefaultErrors) HasGlobalErrors() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.objectErrors) > 0
}

func (e *DefaultErrors) HasFieldErrors() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.fieldErrors) > 0
}

func (e *DefaultErrors) HasFieldErrorsFor(field string) bool {
	return e.FieldErrorCount(field) > 0
}

func (e *DefaultErrors) FieldError(field string) (FieldError, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	errs := e.fieldErrors[field]
	if len(errs) == 0 {
		return FieldError{}, false
	}
	return errs[0], true
}

func (e *DefaultErrors) FieldErrors(field string) []FieldError {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]FieldError(nil), e.fieldErrors[field]...)
}

func (e *DefaultErrors) FieldErrorCount(field string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.fieldErrors[field])
}

func (e *DefaultErrors) GlobalErrors() []ObjectError {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ObjectError(nil), e.objectErrors...)
}

func (e *DefaultErrors) GlobalErrorCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.objectErrors)
}

func (e *DefaultErrors) ErrorCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.countLocked()
}

// AllFieldErrors returns every field error, grouped by field in rejection order.
func (e *DefaultErrors) AllFieldErrors() []FieldError {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var all []FieldError
	for _, field := range e.fieldOrder {
		all = append(all, e.fieldErrors[field]...)
	}
	return all
}

func (e *DefaultErrors) AddFieldError(fe FieldError) {
	e.mu.Lock()
	errs := e.fieldErrors[fe.Field]
	for _, existing := range errs {
		if reflect.DeepEqual(existing, fe) {
			e.mu.Unlock()
			return
		}
	}
	total := e.countLocked()
	count := len(errs)
	if _, ok := e.fieldErrors[fe.Field]; !ok {
		e.fieldOrder = append(e.fieldOrder, fe.Field)
	}
	e.fieldErrors[fe.Field] = append(errs, fe)
	listeners := e.listeners
	e.mu.Unlock()

	fire(listeners,
		ChangeEvent{fe.Field + helpers.Capitalize(HasErrorsProperty), count != 0, true},
		ChangeEvent{fe.Field + helpers.Capitalize(ErrorCountProperty), count, count + 1},
		ChangeEvent{HasErrorsProperty, total != 0, true},
		ChangeEvent{ErrorCountProperty, total, total + 1},
	)
}

func (e *DefaultErrors) AddGlobalError(oe ObjectError) {
	e.mu.Lock()
	for _, existing := range e.objectErrors {
		if reflect.DeepEqual(existing, oe) {
			e.mu.Unlock()
			return
		}
	}
	total := e.countLocked()
	e.objectErrors = append(e.objectErrors, oe)
	listeners := e.listeners
	e.mu.Unlock()

	fire(listeners,
		ChangeEvent{HasErrorsProperty, total != 0, true},
		ChangeEvent{ErrorCountProperty, total, total + 1},
	)
}

func (e *DefaultErrors) Reject(code string, args []any, defaultMessage string) {
	e.AddGlobalError(ObjectError{
		Codes:          e.resolverOf().ResolveObjectCodes(code, e.objectName),
		Args:           args,
		DefaultMessage: defaultMessage,
	})
}

func (e *DefaultErrors) RejectField(field string, rejectedValue any, code string, args []any, defaultMessage string) {
	e.AddFieldError(FieldError{
		ObjectError: ObjectError{
			Codes:          e.ResolveMessageCodes(code, field, e.fieldType(field)),
			Args:           args,
			DefaultMessage: defaultMessage,
		},
		Field:         field,
		RejectedValue: rejectedValue,
	})
}

func (e *DefaultErrors) ResolveMessageCodes(code, field string, fieldType reflect.Type) []string {
	return e.resolverOf().ResolveFieldCodes(code, e.objectName, field, fieldType)
}

func (e *DefaultErrors) ClearAllErrors() {
	e.mu.Lock()
	total := e.countLocked()
	perField := e.countsPerFieldLocked()
	e.objectErrors = nil
	e.fieldErrors = make(map[string][]FieldError)
	e.fieldOrder = nil
	listeners := e.listeners
	e.mu.Unlock()

	fire(listeners, clearEvents(perField, total)...)
}

func (e *DefaultErrors) ClearGlobalErrors() {
	e.mu.Lock()
	total := e.countLocked()
	e.objectErrors = nil
	remaining := e.countLocked()
	listeners := e.listeners
	e.mu.Unlock()

	fire(listeners,
		ChangeEvent{HasErrorsProperty, total != 0, remaining != 0},
		ChangeEvent{ErrorCountProperty, total, remaining},
	)
}

func (e *DefaultErrors) ClearFieldErrors() {
	e.mu.Lock()
	total := e.countLocked()
	perField := e.countsPerFieldLocked()
	e.fieldErrors = make(map[string][]FieldError)
	e.fieldOrder = nil
	remaining := e.countLocked()
	listeners := e.listeners
	e.mu.Unlock()

	events := make([]ChangeEvent, 0, 2*len(perField)+2)
	for _, fc := range perField {
		events = append(events,
			ChangeEvent{fc.field + helpers.Capitalize(HasErrorsProperty), true, false},
			ChangeEvent{fc.field + helpers.Capitalize(ErrorCountProperty), fc.count, 0})
	}
	events = append(events,
		ChangeEvent{HasErrorsProperty, total != 0, remaining != 0},
		ChangeEvent{ErrorCountProperty, total, remaining})
	fire(listeners, events...)
}

func (e *DefaultErrors) ClearFieldErrorsFor(field string) {
	e.mu.Lock()
	total := e.countLocked()
	errs, had := e.fieldErrors[field]
	delete(e.fieldErrors, field)
	if had {
		for i, f := range e.fieldOrder {
			if f == field {
				e.fieldOrder = append(e.fieldOrder[:i], e.fieldOrder[i+1:]...)
				break
			}
		}
	}
	remaining := e.countLocked()
	listeners := e.listeners
	e.mu.Unlock()

	fire(listeners,
		ChangeEvent{field + helpers.Capitalize(HasErrorsProperty), had, false},
		ChangeEvent{field + helpers.Capitalize(ErrorCountProperty), len(errs), 0},
		ChangeEvent{HasErrorsProperty, total != 0, remaining != 0},
		ChangeEvent{ErrorCountProperty, total, remaining},
	)
}

// OnChange registers a listener for change events. Events whose old and new
// values are equal are not delivered.
func (e *DefaultErrors) OnChange(listener func(ChangeEvent)) {
	if listener == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *DefaultErrors) resolverOf() MessageCodesResolver {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolver
}

func (e *DefaultErrors) fieldType(field string) reflect.Type {
	if e.fieldTypes == nil {
		return nil
	}
	return e.fieldTypes[field]
}

func (e *DefaultErrors) countLocked() int {
	count := len(e.objectErrors)
	for _, errs := range e.fieldErrors {
		count += len(errs)
	}
	return count
}

type fieldCount struct {
	field string
	count int
}

func (e *DefaultErrors) countsPerFieldLocked() []fieldCount {
	counts := make([]fieldCount, 0, len(e.fieldOrder))
	for _, field := range e.fieldOrder {
		counts = append(counts, fieldCount{field, len(e.fieldErrors[field])})
	}
	return counts
}

func clearEvents(perField []fieldCount, total int) []ChangeEvent {
	events := make([]ChangeEvent, 0, 2*len(perField)+2)
	for _, fc := range perField {
		events = append(events,
			ChangeEvent{fc.field + helpers.Capitalize(HasErrorsProperty), true, false},
			ChangeEvent{fc.field + helpers.Capitalize(ErrorCountProperty), fc.count, 0})
	}
	return append(events,
		ChangeEvent{HasErrorsProperty, total != 0, false},
		ChangeEvent{ErrorCountProperty, total, 0})
}

func fire(listeners []func(ChangeEvent), events ...ChangeEvent) {
	for _, ev := range events {
		if ev.OldValue == ev.NewValue {
			continue
		}
		for _, l := range listeners {
			l(ev)
		}
	}
}
