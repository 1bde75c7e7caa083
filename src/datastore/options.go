package datastore

import (
	"fmt"
	"strings"

	"griffon/src/helpers"
	"griffon/src/models"
)

// Order is a sort direction.
type Order int

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

// ParseOrder accepts "asc" or "desc" in any case.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return Asc, fmt.Errorf("invalid sort order %q", s)
}

// Keys understood by ParseOptions.
const (
	KeyMax    = "max"
	KeyOffset = "offset"
	KeySort   = "sort"
	KeyOrder  = "order"
)

// Options control pagination and ordering of listings and queries. The zero
// Max of a literal Options means no limit; ParseOptions only accepts a
// positive max. A negative Offset is treated as zero.
type Options struct {
	Max    int
	Offset int
	Sort   string
	Order  Order
}

// DefaultOptions lists everything sorted by identity, ascending.
func DefaultOptions() Options {
	return Options{Sort: models.IdentityProperty, Order: Asc}
}

// ParseOptions reads the max, offset, sort and order keys of opts. Other
// keys are ignored.
func ParseOptions(opts map[string]any) (Options, error) {
	o := DefaultOptions()
	if v, ok := opts[KeyMax]; ok && v != nil {
		n, ok := helpers.ToInt(v)
		if !ok || n <= 0 {
			return o, fmt.Errorf("option %s: expected a positive integer, got %v", KeyMax, v)
		}
		o.Max = n
	}
	if v, ok := opts[KeyOffset]; ok && v != nil {
		n, ok := helpers.ToInt(v)
		if !ok || n < 0 {
			return o, fmt.Errorf("option %s: expected a non-negative integer, got %v", KeyOffset, v)
		}
		o.Offset = n
	}
	if v, ok := opts[KeySort]; ok && v != nil {
		o.Sort = fmt.Sprint(v)
	}
	if v, ok := opts[KeyOrder]; ok && v != nil {
		order, err := ParseOrder(fmt.Sprint(v))
		if err != nil {
			return o, err
		}
		o.Order = order
	}
	return o, nil
}

func (o Options) sortProperty() string {
	if o.Sort == "" {
		return models.IdentityProperty
	}
	return o.Sort
}

func (o Options) limit() int {
	if o.Max <= 0 {
		return int(^uint(0) >> 1)
	}
	return o.Max
}

func (o Options) offset() int {
	if o.Offset < 0 {
		return 0
	}
	return o.Offset
}
