package descriptor

// Shared primitive descriptors. Descriptors are immutable once built, so the
// same pointer can appear in any number of parent types.
var (
	Bool     = &Type{Kind: KindPrimitive, Prim: PrimBool}
	Int      = &Type{Kind: KindPrimitive, Prim: PrimInt}
	Float    = &Type{Kind: KindPrimitive, Prim: PrimFloat}
	String   = &Type{Kind: KindPrimitive, Prim: PrimString}
	Decimal  = &Type{Kind: KindPrimitive, Prim: PrimDecimal}
	Date     = &Type{Kind: KindPrimitive, Prim: PrimDate}
	Time     = &Type{Kind: KindPrimitive, Prim: PrimTime}
	Duration = &Type{Kind: KindPrimitive, Prim: PrimDuration}
)

// List describes a sequence of elem.
func List(elem *Type) *Type {
	return &Type{Kind: KindContainer, Container: ContainerList, Elems: []*Type{elem}}
}

// Map describes a mapping from key to val.
func Map(key, val *Type) *Type {
	return &Type{Kind: KindContainer, Container: ContainerMap, Elems: []*Type{key, val}}
}

// StringMap describes a mapping with string keys.
func StringMap(val *Type) *Type {
	return Map(String, val)
}

// Optional describes a value of t that may be absent. Applied to an anonymous
// union it marks the union itself nilable instead of nesting.
func Optional(t *Type) *Type {
	if t.Kind == KindUnion {
		u := *t
		u.Nilable = true
		return &u
	}
	return &Type{Kind: KindUnion, Alts: []*Type{t}, Nilable: true}
}

// Union describes an unlabeled choice among alts, in priority order.
func Union(alts ...*Type) *Type {
	return &Type{Kind: KindUnion, Alts: alts}
}

// Record describes a named product. The returned descriptor is mutable until
// first extraction so that self-referential fields can be added after
// declaration:
//
//	node := descriptor.Record("Node", descriptor.F("value", descriptor.Int))
//	node.AddField(descriptor.F("next", descriptor.Optional(node)))
func Record(name string, fields ...Field) *Type {
	return &Type{Kind: KindRecord, Name: name, Fields: fields}
}

// AddField appends a field to a record in declaration order.
func (t *Type) AddField(f Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

// F declares a required field.
func F(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

// FDefault declares a field with a default value, used when the input omits
// the field.
func FDefault(name string, t *Type, def any) Field {
	return Field{Name: name, Type: t, Default: &Default{Value: def}}
}

// Tuple describes an anonymous product with positional elements.
func Tuple(elems ...*Type) *Type {
	return &Type{Kind: KindTuple, Elems: elems}
}

// Sealed describes a named union: a closed set of variants selected by a
// discriminator field. The discriminator field name defaults to the type
// name; use WithTagField to override it.
func Sealed(name string, variants ...Variant) *Type {
	return &Type{Kind: KindSealed, Name: name, Variants: variants}
}

// WithTagField overrides the discriminator field name of a sealed union.
func (t *Type) WithTagField(field string) *Type {
	t.TagField = field
	return t
}

// AddVariant appends a variant to a sealed union in declaration order.
func (t *Type) AddVariant(v Variant) *Type {
	t.Variants = append(t.Variants, v)
	return t
}

// V declares a sealed-union variant with its discriminator tag.
func V(tag string, t *Type) Variant {
	return Variant{Tag: tag, Type: t}
}

// Enum describes a closed set of named constant values.
func Enum(name string, members ...EnumMember) *Type {
	return &Type{Kind: KindEnum, Name: name, Members: members}
}

// M declares an enum member. Input values are matched against the member by
// name or by value (see EnumMember.Matches).
func M(name string, value any) EnumMember {
	return EnumMember{Name: name, Value: value}
}

// Var references a type parameter by name. It resolves against the bindings
// of the nearest enclosing instantiated generic type.
func Var(name string) *Type {
	return &Type{Kind: KindVar, Var: name}
}

// Generic describes a named product parameterized over params. Field types
// may reference the parameters with Var.
func Generic(name string, params []string, fields ...Field) *Type {
	return &Type{Kind: KindRecord, Name: name, Params: params, Fields: fields}
}

// Instantiate binds a generic type's parameters to args positionally. The
// original descriptor is left untouched.
func Instantiate(t *Type, args ...*Type) *Type {
	inst := *t
	inst.Args = args
	return &inst
}

// Opaque references a named wrapper type whose structure is not described.
// It only extracts when a custom recipe is registered for the name.
func Opaque(name string, args ...*Type) *Type {
	return &Type{Kind: KindOpaque, Name: name, Args: args}
}
