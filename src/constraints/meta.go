package constraints

import (
	"fmt"

	"griffon/src/helpers"
)

// MetaAttribute is one of the presentation attributes a constrained property
// carries besides its constraints.
type MetaAttribute int

const (
	MetaDisplay MetaAttribute = iota + 1
	MetaEditable
	MetaEnabled
	MetaFormat
	MetaWidget
	MetaPassword
	MetaOrder
	MetaAttributes
)

var metaAttributeNames = map[MetaAttribute]string{
	MetaDisplay:    "display",
	MetaEditable:   "editable",
	MetaEnabled:    "enabled",
	MetaFormat:     "format",
	MetaWidget:     "widget",
	MetaPassword:   "password",
	MetaOrder:      "order",
	MetaAttributes: "attributes",
}

// ParseMetaAttribute resolves a constraint name to a meta attribute.
func ParseMetaAttribute(name string) (MetaAttribute, bool) {
	for attr, n := range metaAttributeNames {
		if n == name {
			return attr, true
		}
	}
	return 0, false
}

func (m MetaAttribute) String() string {
	if n, ok := metaAttributeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("MetaAttribute(%d)", int(m))
}

// metaAttributes holds the values of every meta attribute.
type metaAttributes struct {
	display    bool
	editable   bool
	enabled    bool
	password   bool
	format     string
	widget     string
	order      int
	attributes map[string]any
}

func defaultMetaAttributes() metaAttributes {
	return metaAttributes{
		display:    true,
		editable:   true,
		enabled:    true,
		order:      -1,
		attributes: make(map[string]any),
	}
}

// set writes value into attr, checking its type.
func (m *metaAttributes) set(attr MetaAttribute, value any) error {
	switch attr {
	case MetaDisplay, MetaEditable, MetaEnabled, MetaPassword:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("meta attribute [%s] requires a boolean, got %T", attr, value)
		}
		switch attr {
		case MetaDisplay:
			m.display = b
		case MetaEditable:
			m.editable = b
		case MetaEnabled:
			m.enabled = b
		default:
			m.password = b
		}
	case MetaFormat, MetaWidget:
		s, ok := value.(string)
		if !ok && value != nil {
			return fmt.Errorf("meta attribute [%s] requires a string, got %T", attr, value)
		}
		if attr == MetaFormat {
			m.format = s
		} else {
			m.widget = s
		}
	case MetaOrder:
		n, ok := helpers.ToInt(value)
		if !ok {
			return fmt.Errorf("meta attribute [%s] requires an integer, got %T", attr, value)
		}
		m.order = n
	case MetaAttributes:
		attrs, ok := value.(map[string]any)
		if !ok && value != nil {
			return fmt.Errorf("meta attribute [%s] requires a map, got %T", attr, value)
		}
		m.attributes = make(map[string]any, len(attrs))
		for k, v := range attrs {
			m.attributes[k] = v
		}
	default:
		return fmt.Errorf("unknown meta attribute %d", int(attr))
	}
	return nil
}
