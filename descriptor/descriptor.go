// Package descriptor defines the normalized type description consumed by the
// typefold engine — an explicit value-type schema of a type's shape, fields,
// variants, and generic bindings. Descriptors are built once per type through
// the constructors in this package; the engine never inspects Go runtime
// types.
package descriptor

import "reflect"

// Type describes a single type. Exactly which fields are meaningful depends
// on Kind; everything else is left at its zero value.
type Type struct {
	// Kind identifies the declared structural kind of the type.
	Kind Kind

	// Name is the type's declared name. Required for KindRecord, KindSealed,
	// KindEnum, and KindOpaque; ignored for structural kinds.
	Name string

	// Prim holds the primitive kind. Only set when Kind == KindPrimitive.
	Prim Primitive

	// Var is the referenced type-parameter name. Only set when Kind == KindVar.
	Var string

	// Container holds the container kind. Only set when Kind == KindContainer.
	Container ContainerKind

	// Elems holds child types for containers (one for lists, key then value
	// for maps) and the positional element types of tuples.
	Elems []*Type

	// Fields holds the named fields of a record, in declaration order.
	// Only set when Kind == KindRecord.
	Fields []Field

	// Alts holds the non-absent alternatives of an anonymous union, in
	// priority order. Only set when Kind == KindUnion.
	Alts []*Type

	// Nilable is true when an anonymous union includes the absence
	// alternative; an optional T is a nilable union over {T}.
	Nilable bool

	// Variants holds the enumerated subtypes of a sealed union, in
	// declaration order. Only set when Kind == KindSealed.
	Variants []Variant

	// TagField names the discriminator field of a sealed union. When empty,
	// the type name is used.
	TagField string

	// Members holds the enum members. Only set when Kind == KindEnum.
	Members []EnumMember

	// Params names the generic type parameters a named type declares.
	Params []string

	// Args binds Params positionally for an instantiated generic type.
	Args []*Type
}

// Kind represents the declared structural kind of a type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindVar            // unresolved type parameter reference
	KindContainer      // list-of-T, map-of-K-V
	KindRecord         // named product
	KindTuple          // anonymous product
	KindUnion          // anonymous union
	KindSealed         // named union (closed hierarchy with discriminators)
	KindEnum           // closed set of named constant values
	KindOpaque         // named wrapper with no declared structure
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindVar:
		return "var"
	case KindContainer:
		return "container"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindUnion:
		return "union"
	case KindSealed:
		return "sealed"
	case KindEnum:
		return "enum"
	case KindOpaque:
		return "opaque"
	}
	return "unknown"
}

// Primitive identifies a leaf type with no children.
type Primitive string

const (
	PrimBool     Primitive = "bool"
	PrimInt      Primitive = "int"
	PrimFloat    Primitive = "float"
	PrimString   Primitive = "string"
	PrimDecimal  Primitive = "decimal"   // arbitrary-precision decimal number
	PrimDate     Primitive = "date"      // calendar date, no time component
	PrimTime     Primitive = "time"      // instant with time component
	PrimDuration Primitive = "duration"
)

// ContainerKind identifies a simple generic container.
type ContainerKind string

const (
	ContainerList ContainerKind = "list"
	ContainerMap  ContainerKind = "map"
)

// Field is a single named field of a record.
type Field struct {
	Name string
	Type *Type

	// Default, when non-nil, supplies the value used for the field when the
	// input omits it. A nil Default means the field has no default at all,
	// which is distinct from a default of nil.
	Default *Default
}

// Default wraps a field default so that "no default" and "default is nil"
// stay distinguishable.
type Default struct {
	Value any
}

// Variant is one enumerated subtype of a sealed union.
type Variant struct {
	// Tag is the discriminator value that selects this variant.
	Tag  string
	Type *Type
}

// EnumMember is a single named value of an enum.
type EnumMember struct {
	Name  string
	Value any
}

// Matches reports whether v denotes this member, either by name or by value.
// Values are compared with reflect.DeepEqual so a member whose value has a
// non-comparable dynamic type (a slice, a map) never panics.
func (m EnumMember) Matches(v any) bool {
	if s, ok := v.(string); ok && s == m.Name {
		return true
	}
	return reflect.DeepEqual(v, m.Value)
}

// IsOptional reports whether t is an anonymous union that includes the
// absence alternative.
func (t *Type) IsOptional() bool {
	return t.Kind == KindUnion && t.Nilable
}
