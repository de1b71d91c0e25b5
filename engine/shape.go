package engine

import (
	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
)

// Shape is the structural category a descriptor is classified into. The set
// is closed; dispatch over it is exhaustive so a new shape has to be added
// here deliberately.
type Shape int

const (
	ShapeCustom Shape = iota
	ShapeTypeVariable
	ShapePrimitive
	ShapeNamedUnion
	ShapeAnonymousUnion
	ShapeNamedProduct
	ShapeAnonymousProduct
	ShapeContainer
	ShapeEnum
)

func (s Shape) String() string {
	switch s {
	case ShapeCustom:
		return "custom"
	case ShapeTypeVariable:
		return "type-variable"
	case ShapePrimitive:
		return "primitive"
	case ShapeNamedUnion:
		return "named-union"
	case ShapeAnonymousUnion:
		return "anonymous-union"
	case ShapeNamedProduct:
		return "named-product"
	case ShapeAnonymousProduct:
		return "anonymous-product"
	case ShapeContainer:
		return "container"
	case ShapeEnum:
		return "enum"
	}
	return "unknown"
}

// Classify places a descriptor in exactly one shape. It is total and pure:
// the only inputs are the descriptor and whether a custom recipe exists for
// its name. First match wins, with a registered recipe taking precedence
// over every structural rule.
func Classify(t *descriptor.Type, hasRecipe func(name string) bool) (Shape, error) {
	if t.Name != "" && hasRecipe != nil && hasRecipe(t.Name) {
		return ShapeCustom, nil
	}

	switch t.Kind {
	case descriptor.KindVar:
		return ShapeTypeVariable, nil
	case descriptor.KindPrimitive:
		return ShapePrimitive, nil
	case descriptor.KindSealed:
		return ShapeNamedUnion, nil
	case descriptor.KindUnion:
		return ShapeAnonymousUnion, nil
	case descriptor.KindRecord:
		return ShapeNamedProduct, nil
	case descriptor.KindTuple:
		return ShapeAnonymousProduct, nil
	case descriptor.KindContainer:
		return ShapeContainer, nil
	case descriptor.KindEnum:
		return ShapeEnum, nil
	}

	if t.Kind == descriptor.KindOpaque {
		return 0, errors.Wrapf(ErrUnsupportedType, "opaque type %s has no registered recipe", t.Name)
	}
	return 0, errors.Wrapf(ErrUnsupportedType, "kind %s", t.Kind)
}
