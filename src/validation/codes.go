package validation

import "reflect"

// MessageCodesResolver expands an error code into the list of message codes a
// MessageSource is consulted with, most specific first.
type MessageCodesResolver interface {
	ResolveObjectCodes(code, objectName string) []string
	ResolveFieldCodes(code, objectName, field string, fieldType reflect.Type) []string
}

// DefaultMessageCodesResolver produces, for code c, object o, field f and
// field type t: "c.o.f", "c.f", "c.t", "c".
type DefaultMessageCodesResolver struct{}

func (DefaultMessageCodesResolver) ResolveObjectCodes(code, objectName string) []string {
	return []string{code + "." + objectName, code}
}

func (DefaultMessageCodesResolver) ResolveFieldCodes(code, objectName, field string, fieldType reflect.Type) []string {
	codes := make([]string, 0, 4)
	codes = append(codes, code+"."+objectName+"."+field, code+"."+field)
	if fieldType != nil {
		codes = append(codes, code+"."+fieldType.String())
	}
	return append(codes, code)
}
