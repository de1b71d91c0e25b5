package schemaexp

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/engine"
)

// Generator derives schemas and collects the bodies of named types under
// $defs, keyed by type identity.
type Generator struct {
	eng *engine.Engine

	mu   sync.Mutex
	defs map[string]*Schema
}

// NewGenerator returns a generator with its own engine and defs collection.
func NewGenerator(opts ...engine.Option) *Generator {
	g := &Generator{defs: make(map[string]*Schema)}
	g.eng = engine.New(&schemaExtractor{gen: g}, opts...)
	return g
}

// SchemaFor derives the schema for t. Named types come back as $ref
// schemas; resolve them through Defs or use Document for a self-contained
// schema.
func (g *Generator) SchemaFor(t *descriptor.Type) (*Schema, error) {
	a, err := g.eng.Extract(t)
	if err != nil {
		return nil, err
	}
	s, ok := a.(*Schema)
	if !ok {
		return nil, errors.Newf("engine produced %T, not a schema", a)
	}
	return s, nil
}

// Document derives the schema for t and attaches every collected definition,
// yielding a self-contained document.
func (g *Generator) Document(t *descriptor.Type) (*Schema, error) {
	s, err := g.SchemaFor(t)
	if err != nil {
		return nil, err
	}
	doc := *s
	doc.Defs = g.Defs()
	return &doc, nil
}

// Defs returns a snapshot of the collected named-type definitions.
func (g *Generator) Defs() map[string]*Schema {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]*Schema, len(g.defs))
	for k, v := range g.defs {
		out[k] = v
	}
	return out
}

func (g *Generator) define(key string, s *Schema) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defs[key] = s
}

func defRef(key string) string {
	return "#/$defs/" + key
}

type schemaExtractor struct {
	gen *Generator
}

var _ engine.Extractor = (*schemaExtractor)(nil)

// childSchema returns the schema for a child reference. An unresolved
// reference belongs to a type whose extraction encloses this one, so it is
// named by identity instead of dereferenced — the placeholder-holding path.
func childSchema(r *engine.Ref) (*Schema, error) {
	if !r.Resolved() {
		return &Schema{Ref: defRef(string(r.TypeID()))}, nil
	}
	a, err := r.Artifact()
	if err != nil {
		return nil, err
	}
	s, ok := a.(*Schema)
	if !ok {
		return nil, errors.Newf("artifact for %s is not a schema", r.TypeID())
	}
	return s, nil
}

func (x *schemaExtractor) Primitive(p descriptor.Primitive) (engine.Artifact, error) {
	switch p {
	case descriptor.PrimBool:
		return &Schema{Type: "boolean"}, nil
	case descriptor.PrimInt:
		return &Schema{Type: "integer"}, nil
	case descriptor.PrimFloat:
		return &Schema{Type: "number"}, nil
	case descriptor.PrimString:
		return &Schema{Type: "string"}, nil
	case descriptor.PrimDecimal:
		return &Schema{Type: "string", Format: "decimal"}, nil
	case descriptor.PrimDate:
		return &Schema{Type: "string", Format: "date"}, nil
	case descriptor.PrimTime:
		return &Schema{Type: "string", Format: "date-time"}, nil
	case descriptor.PrimDuration:
		return &Schema{Type: "string", Format: "duration"}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "primitive %s", p)
}

func (x *schemaExtractor) Container(kind descriptor.ContainerKind, elems []*engine.Ref) (engine.Artifact, error) {
	switch kind {
	case descriptor.ContainerList:
		items, err := childSchema(elems[0])
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case descriptor.ContainerMap:
		val, err := childSchema(elems[1])
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: val}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "container %s", kind)
}

func (x *schemaExtractor) NamedProduct(t *descriptor.Type, fields []engine.ProductField) (engine.Artifact, error) {
	body := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema, len(fields)),
	}
	for _, f := range fields {
		prop, err := childSchema(f.Ref)
		if err != nil {
			return nil, err
		}
		if f.Default != nil {
			withDefault := *prop
			withDefault.Default = f.Default.Value
			prop = &withDefault
		}
		body.Properties[f.Name] = prop
		if f.Required {
			body.Required = append(body.Required, f.Name)
		}
	}
	key := string(t.Identity())
	x.gen.define(key, body)
	return &Schema{Ref: defRef(key)}, nil
}

func (x *schemaExtractor) AnonymousProduct(_ *descriptor.Type, elems []*engine.Ref) (engine.Artifact, error) {
	prefix := make([]*Schema, len(elems))
	for i, e := range elems {
		s, err := childSchema(e)
		if err != nil {
			return nil, err
		}
		prefix[i] = s
	}
	return &Schema{Type: "array", PrefixItems: prefix}, nil
}

// AnonymousUnion does not disambiguate overlapping alternatives: anyOf
// expresses exactly that policy.
func (x *schemaExtractor) AnonymousUnion(_ *descriptor.Type, alts []*engine.Ref, nilable bool) (engine.Artifact, error) {
	anyOf := make([]*Schema, 0, len(alts)+1)
	for _, a := range alts {
		s, err := childSchema(a)
		if err != nil {
			return nil, err
		}
		anyOf = append(anyOf, s)
	}
	if nilable {
		anyOf = append(anyOf, &Schema{Type: "null"})
	}
	if len(anyOf) == 1 {
		return anyOf[0], nil
	}
	return &Schema{AnyOf: anyOf}, nil
}

func (x *schemaExtractor) NamedUnion(t *descriptor.Type, tagField string, variants []engine.UnionVariant) (engine.Artifact, error) {
	body := &Schema{
		OneOf: make([]*Schema, 0, len(variants)),
		Discriminator: &Discriminator{
			PropertyName: tagField,
			Mapping:      make(map[string]string, len(variants)),
		},
	}
	for _, v := range variants {
		s, err := childSchema(v.Ref)
		if err != nil {
			return nil, err
		}
		body.OneOf = append(body.OneOf, s)
		body.Discriminator.Mapping[v.Tag] = defRef(string(v.Ref.TypeID()))
	}
	key := string(t.Identity())
	x.gen.define(key, body)
	return &Schema{Ref: defRef(key)}, nil
}

func (x *schemaExtractor) Enum(name string, members []descriptor.EnumMember) (engine.Artifact, error) {
	body := &Schema{Type: "string", Enum: make([]any, 0, len(members))}
	for _, m := range members {
		body.Enum = append(body.Enum, m.Name)
	}
	x.gen.define(name, body)
	return &Schema{Ref: defRef(name)}, nil
}

func (x *schemaExtractor) TypeVariable(name string) (engine.Artifact, error) {
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "unbound type variable %s", name)
}
