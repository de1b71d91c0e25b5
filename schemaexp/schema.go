// Package schemaexp derives JSON Schema documents from type descriptors.
// Named types are emitted as $ref entries with their bodies collected under
// $defs, which is also how self-referential and mutually recursive types are
// represented: an unresolved child reference short-circuits to a $ref by
// type identity.
package schemaexp

// Schema represents a JSON Schema (draft 2020-12 compatible) document or
// subschema.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	PrefixItems          []*Schema          `json:"prefixItems,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	AnyOf                []*Schema          `json:"anyOf,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Discriminator        *Discriminator     `json:"discriminator,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Default              any                `json:"default,omitempty"`
	Defs                 map[string]*Schema `json:"$defs,omitempty"`
}

// Discriminator describes the discriminator of a sealed union: the property
// whose literal value selects the variant schema.
type Discriminator struct {
	PropertyName string            `json:"propertyName"`
	Mapping      map[string]string `json:"mapping,omitempty"`
}
