package ir

import "fmt"

// TensorProperty names one field of the tensor descriptor.
type TensorProperty int

const (
	Order TensorProperty = iota
	Dimension
	ComponentSize
	ModeOrdering
	ModeTypes
	Indices
	Values
	ValuesSize
)

var propertyNames = [...]string{
	Order:         "order",
	Dimension:     "dimension",
	ComponentSize: "csize",
	ModeOrdering:  "mode_ordering",
	ModeTypes:     "mode_types",
	Indices:       "indices",
	Values:        "vals",
	ValuesSize:    "vals_size",
}

func (p TensorProperty) String() string {
	if p < 0 || int(p) >= len(propertyNames) {
		return fmt.Sprintf("property(%d)", int(p))
	}
	return propertyNames[p]
}

// PerMode reports whether the property is an array indexed by mode.
func (p TensorProperty) PerMode() bool {
	switch p {
	case Dimension, ModeOrdering, ModeTypes, Indices:
		return true
	default:
		return false
	}
}

// ParseTensorProperty is the inverse of TensorProperty.String.
func ParseTensorProperty(s string) (TensorProperty, error) {
	for i, name := range propertyNames {
		if name == s {
			return TensorProperty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tensor property %q", s)
}

// AllProperties lists every property in descriptor field order.
func AllProperties() []TensorProperty {
	return []TensorProperty{Order, Dimension, ComponentSize, ModeOrdering, ModeTypes, Indices, Values, ValuesSize}
}
