package jsoncodec

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/engine"
)

// Decoder validates and normalizes a generic JSON value tree (the result of
// unmarshalling into any) into the value form of its type: records become
// map[string]any with defaults applied, tuples and lists become []any, enums
// become their member values.
type Decoder interface {
	Decode(v any) (any, error)
}

// DecoderExtractor derives Decoders. Wire it into an engine with
// NewDecoderEngine.
type DecoderExtractor struct{}

var _ engine.Extractor = DecoderExtractor{}

func decoderOf(r *engine.Ref) (Decoder, error) {
	a, err := r.Artifact()
	if err != nil {
		return nil, err
	}
	d, ok := a.(Decoder)
	if !ok {
		return nil, errors.Newf("artifact for %s is not a json decoder", r.TypeID())
	}
	return d, nil
}

type primitiveDecoder struct {
	prim descriptor.Primitive
}

func (d *primitiveDecoder) Decode(v any) (any, error) {
	switch d.prim {
	case descriptor.PrimBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, errorf("expected a JSON boolean, got %T", v)

	case descriptor.PrimString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, errorf("expected a JSON string, got %T", v)

	case descriptor.PrimFloat:
		if f, ok := asFloat(v); ok {
			return f, nil
		}
		return nil, errorf("expected a JSON number, got %T", v)

	case descriptor.PrimInt:
		f, ok := asFloat(v)
		if !ok {
			return nil, errorf("expected a JSON number, got %T", v)
		}
		n := int64(f)
		if float64(n) != f {
			return nil, errorf("expected an integral number, got %v", f)
		}
		return n, nil

	case descriptor.PrimDecimal:
		// Canonical wire form is a string; numbers are accepted and carry
		// whatever precision float64 preserved.
		switch n := v.(type) {
		case string:
			r, ok := new(big.Rat).SetString(n)
			if !ok {
				return nil, errorf("invalid decimal %q", n)
			}
			return r, nil
		case float64:
			return new(big.Rat).SetFloat64(n), nil
		}
		return nil, errorf("expected a decimal string or number, got %T", v)

	case descriptor.PrimDate:
		s, ok := v.(string)
		if !ok {
			return nil, errorf("expected a date string, got %T", v)
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, errorf("invalid date %q", s)
		}
		return t, nil

	case descriptor.PrimTime:
		s, ok := v.(string)
		if !ok {
			return nil, errorf("expected a timestamp string, got %T", v)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, errorf("invalid timestamp %q", s)
		}
		return t, nil

	case descriptor.PrimDuration:
		s, ok := v.(string)
		if !ok {
			return nil, errorf("expected a duration string, got %T", v)
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return nil, errorf("invalid duration %q", s)
		}
		return dur, nil
	}
	return nil, errorf("unknown primitive %s", d.prim)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

type listDecoder struct {
	elem *engine.Ref
}

func (d *listDecoder) Decode(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errorf("expected a JSON array, got %T", v)
	}
	elem, err := decoderOf(d.elem)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	var errs Errors
	for i, item := range items {
		dv, err := elem.Decode(item)
		if err != nil {
			errs = append(errs, inIndex(i, err)...)
			continue
		}
		out = append(out, dv)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type mapDecoder struct {
	key *engine.Ref
	val *engine.Ref
}

func (d *mapDecoder) Decode(v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("expected a JSON object, got %T", v)
	}
	key, err := decoderOf(d.key)
	if err != nil {
		return nil, err
	}
	val, err := decoderOf(d.val)
	if err != nil {
		return nil, err
	}
	out := make(map[any]any, len(obj))
	var errs Errors
	for k, raw := range obj {
		dk, err := key.Decode(k)
		if err != nil {
			errs = append(errs, inField(k, err)...)
			continue
		}
		dv, err := val.Decode(raw)
		if err != nil {
			errs = append(errs, inField(k, err)...)
			continue
		}
		out[dk] = dv
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type fieldDecoder struct {
	name     string
	ref      *engine.Ref
	required bool
	def      *descriptor.Default
}

type recordDecoder struct {
	name   string
	fields []fieldDecoder
}

func (d *recordDecoder) Decode(v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("expected a JSON object, got %T", v)
	}
	out := make(map[string]any, len(d.fields))
	var errs Errors
	for _, f := range d.fields {
		raw, present := obj[f.name]
		if !present || raw == nil {
			switch {
			case f.def != nil:
				out[f.name] = f.def.Value
			case !f.required:
				out[f.name] = nil
			default:
				errs = append(errs, inField(f.name, errorf("required field not found"))...)
			}
			continue
		}
		dec, err := decoderOf(f.ref)
		if err != nil {
			return nil, err
		}
		dv, err := dec.Decode(raw)
		if err != nil {
			errs = append(errs, inField(f.name, err)...)
			continue
		}
		out[f.name] = dv
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type tupleDecoder struct {
	elems []*engine.Ref
}

func (d *tupleDecoder) Decode(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errorf("expected a JSON array, got %T", v)
	}
	if len(items) != len(d.elems) {
		return nil, errorf("expected an array of size %d, got %d", len(d.elems), len(items))
	}
	out := make([]any, len(items))
	var errs Errors
	for i, ref := range d.elems {
		dec, err := decoderOf(ref)
		if err != nil {
			return nil, err
		}
		dv, err := dec.Decode(items[i])
		if err != nil {
			errs = append(errs, inIndex(i, err)...)
			continue
		}
		out[i] = dv
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// unionDecoder tries the alternatives in priority order; the first success
// wins. This is the ambiguity policy for anonymous unions in the JSON
// artifact kind: runtime value shape disambiguates.
type unionDecoder struct {
	alts    []*engine.Ref
	nilable bool
}

func (d *unionDecoder) Decode(v any) (any, error) {
	if v == nil {
		if d.nilable {
			return nil, nil
		}
		return nil, errorf("unexpected null")
	}
	var errs Errors
	for _, alt := range d.alts {
		dec, err := decoderOf(alt)
		if err != nil {
			return nil, err
		}
		dv, err := dec.Decode(v)
		if err == nil {
			return dv, nil
		}
		errs = append(errs, asErrors(err)...)
	}
	if len(errs) == 0 {
		return nil, errorf("union has no alternatives")
	}
	return nil, errs
}

// taggedDecoder decodes a sealed union: the discriminator field routes to
// the variant decoder, which consumes the same object.
type taggedDecoder struct {
	name     string
	tagField string
	tags     []string
	variants map[string]*engine.Ref
}

func (d *taggedDecoder) Decode(v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("expected a JSON object, got %T", v)
	}
	raw, present := obj[d.tagField]
	if !present {
		return nil, inField(d.tagField, errorf("required tag field not found"))
	}
	tag, ok := raw.(string)
	if !ok {
		return nil, inField(d.tagField, errorf("expected a string tag, got %T", raw))
	}
	ref, ok := d.variants[tag]
	if !ok {
		return nil, inField(d.tagField, errorf("unknown tag %q (known tags: %v)", tag, d.tags))
	}
	dec, err := decoderOf(ref)
	if err != nil {
		return nil, err
	}
	dv, err := dec.Decode(v)
	if err != nil {
		return nil, err
	}
	if m, ok := dv.(map[string]any); ok {
		m[d.tagField] = tag
	}
	return dv, nil
}

// enumDecoder matches the wire form (the member name) and yields the member
// value.
type enumDecoder struct {
	name    string
	members []descriptor.EnumMember
}

func (d *enumDecoder) Decode(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errorf("expected a string for enum %s, got %T", d.name, v)
	}
	for _, m := range d.members {
		if m.Name == s {
			return m.Value, nil
		}
	}
	return nil, errorf("unexpected value %q for enum %s", s, d.name)
}

func (DecoderExtractor) Primitive(p descriptor.Primitive) (engine.Artifact, error) {
	return &primitiveDecoder{prim: p}, nil
}

func (DecoderExtractor) Container(kind descriptor.ContainerKind, elems []*engine.Ref) (engine.Artifact, error) {
	switch kind {
	case descriptor.ContainerList:
		return &listDecoder{elem: elems[0]}, nil
	case descriptor.ContainerMap:
		return &mapDecoder{key: elems[0], val: elems[1]}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "container %s", kind)
}

func (DecoderExtractor) NamedProduct(t *descriptor.Type, fields []engine.ProductField) (engine.Artifact, error) {
	d := &recordDecoder{name: t.Name, fields: make([]fieldDecoder, 0, len(fields))}
	for _, f := range fields {
		d.fields = append(d.fields, fieldDecoder{
			name:     f.Name,
			ref:      f.Ref,
			required: f.Required,
			def:      f.Default,
		})
	}
	return d, nil
}

func (DecoderExtractor) AnonymousProduct(_ *descriptor.Type, elems []*engine.Ref) (engine.Artifact, error) {
	return &tupleDecoder{elems: elems}, nil
}

func (DecoderExtractor) AnonymousUnion(_ *descriptor.Type, alts []*engine.Ref, nilable bool) (engine.Artifact, error) {
	return &unionDecoder{alts: alts, nilable: nilable}, nil
}

func (DecoderExtractor) NamedUnion(t *descriptor.Type, tagField string, variants []engine.UnionVariant) (engine.Artifact, error) {
	d := &taggedDecoder{
		name:     t.Name,
		tagField: tagField,
		variants: make(map[string]*engine.Ref, len(variants)),
	}
	for _, v := range variants {
		d.tags = append(d.tags, v.Tag)
		d.variants[v.Tag] = v.Ref
	}
	return d, nil
}

func (DecoderExtractor) Enum(name string, members []descriptor.EnumMember) (engine.Artifact, error) {
	return &enumDecoder{name: name, members: members}, nil
}

func (DecoderExtractor) TypeVariable(name string) (engine.Artifact, error) {
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "unbound type variable %s", name)
}
