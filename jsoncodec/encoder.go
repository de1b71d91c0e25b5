package jsoncodec

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/engine"
)

// Encoder turns a value in decoded form (records as map[string]any, lists
// and tuples as []any) into a canonical JSON value tree: optional fields
// holding nil are dropped, sealed unions carry their discriminator field,
// enums are emitted by member name.
type Encoder interface {
	Encode(v any) (any, error)
}

// EncoderExtractor derives Encoders. Wire it into an engine with
// NewEncoderEngine.
type EncoderExtractor struct{}

var _ engine.Extractor = EncoderExtractor{}

func encoderOf(r *engine.Ref) (Encoder, error) {
	a, err := r.Artifact()
	if err != nil {
		return nil, err
	}
	e, ok := a.(Encoder)
	if !ok {
		return nil, errors.Newf("artifact for %s is not a json encoder", r.TypeID())
	}
	return e, nil
}

type primitiveEncoder struct {
	prim descriptor.Primitive
}

func (e *primitiveEncoder) Encode(v any) (any, error) {
	switch e.prim {
	case descriptor.PrimBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case descriptor.PrimString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case descriptor.PrimFloat:
		if f, ok := asFloat(v); ok {
			return f, nil
		}
	case descriptor.PrimInt:
		if f, ok := asFloat(v); ok && float64(int64(f)) == f {
			return int64(f), nil
		}
	case descriptor.PrimDecimal:
		if r, ok := v.(*big.Rat); ok {
			s, exact := formatDecimal(r)
			if !exact {
				return nil, errorf("%s has no finite decimal form", r.RatString())
			}
			return s, nil
		}
	case descriptor.PrimDate:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02"), nil
		}
	case descriptor.PrimTime:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339), nil
		}
	case descriptor.PrimDuration:
		if d, ok := v.(time.Duration); ok {
			return d.String(), nil
		}
	}
	return nil, errorf("cannot encode %T as %s", v, e.prim)
}

// formatDecimal renders a rational as an exact decimal string. A rational has
// a finite decimal form only when its reduced denominator is a product of
// twos and fives; the needed digit count is the larger exponent.
func formatDecimal(r *big.Rat) (string, bool) {
	if r.IsInt() {
		return r.Num().String(), true
	}
	den := new(big.Int).Set(r.Denom())
	quo := new(big.Int)
	rem := new(big.Int)
	digits := 0
	for _, p := range []int64{2, 5} {
		pb := big.NewInt(p)
		n := 0
		for {
			quo.QuoRem(den, pb, rem)
			if rem.Sign() != 0 {
				break
			}
			den.Set(quo)
			n++
		}
		if n > digits {
			digits = n
		}
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return "", false
	}
	return r.FloatString(digits), true
}

type listEncoder struct {
	elem *engine.Ref
}

func (e *listEncoder) Encode(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errorf("expected a slice, got %T", v)
	}
	elem, err := encoderOf(e.elem)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	var errs Errors
	for i, item := range items {
		ev, err := elem.Encode(item)
		if err != nil {
			errs = append(errs, inIndex(i, err)...)
			continue
		}
		out = append(out, ev)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type mapEncoder struct {
	key *engine.Ref
	val *engine.Ref
}

func (e *mapEncoder) Encode(v any) (any, error) {
	key, err := encoderOf(e.key)
	if err != nil {
		return nil, err
	}
	val, err := encoderOf(e.val)
	if err != nil {
		return nil, err
	}

	// Both decoded maps (map[any]any, enum keys included) and plain string
	// maps are accepted.
	entries := make(map[any]any)
	switch m := v.(type) {
	case map[any]any:
		entries = m
	case map[string]any:
		for k, mv := range m {
			entries[k] = mv
		}
	default:
		return nil, errorf("expected a map, got %T", v)
	}

	out := make(map[string]any, len(entries))
	var errs Errors
	for k, mv := range entries {
		ek, err := key.Encode(k)
		if err != nil {
			return nil, errorf("cannot encode map key %v: %v", k, err)
		}
		ks, ok := ek.(string)
		if !ok {
			return nil, errorf("map key %v does not encode to a string", k)
		}
		ev, err := val.Encode(mv)
		if err != nil {
			errs = append(errs, inField(ks, err)...)
			continue
		}
		out[ks] = ev
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type fieldEncoder struct {
	name     string
	ref      *engine.Ref
	required bool
	def      *descriptor.Default
}

type recordEncoder struct {
	name   string
	fields []fieldEncoder
}

func (e *recordEncoder) Encode(v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("expected a map value for record %s, got %T", e.name, v)
	}
	out := make(map[string]any, len(e.fields))
	var errs Errors
	for _, f := range e.fields {
		raw, present := obj[f.name]
		if !present || raw == nil {
			switch {
			case f.def != nil:
				raw = f.def.Value
				if raw == nil {
					continue
				}
			case !f.required:
				continue // optional and absent: dropped
			default:
				errs = append(errs, inField(f.name, errorf("required field not found"))...)
				continue
			}
		}
		enc, err := encoderOf(f.ref)
		if err != nil {
			return nil, err
		}
		ev, err := enc.Encode(raw)
		if err != nil {
			errs = append(errs, inField(f.name, err)...)
			continue
		}
		out[f.name] = ev
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type tupleEncoder struct {
	elems []*engine.Ref
}

func (e *tupleEncoder) Encode(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errorf("expected a slice, got %T", v)
	}
	if len(items) != len(e.elems) {
		return nil, errorf("expected %d elements, got %d", len(e.elems), len(items))
	}
	out := make([]any, len(items))
	var errs Errors
	for i, ref := range e.elems {
		enc, err := encoderOf(ref)
		if err != nil {
			return nil, err
		}
		ev, err := enc.Encode(items[i])
		if err != nil {
			errs = append(errs, inIndex(i, err)...)
			continue
		}
		out[i] = ev
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

type unionEncoder struct {
	alts    []*engine.Ref
	nilable bool
}

func (e *unionEncoder) Encode(v any) (any, error) {
	if v == nil {
		if e.nilable {
			return nil, nil
		}
		return nil, errorf("unexpected nil")
	}
	var errs Errors
	for _, alt := range e.alts {
		enc, err := encoderOf(alt)
		if err != nil {
			return nil, err
		}
		ev, err := enc.Encode(v)
		if err == nil {
			return ev, nil
		}
		errs = append(errs, asErrors(err)...)
	}
	if len(errs) == 0 {
		return nil, errorf("union has no alternatives")
	}
	return nil, errs
}

type taggedEncoder struct {
	name     string
	tagField string
	tags     []string
	variants map[string]*engine.Ref
}

func (e *taggedEncoder) Encode(v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errorf("expected a map value for sealed union %s, got %T", e.name, v)
	}
	raw, present := obj[e.tagField]
	if !present {
		return nil, inField(e.tagField, errorf("required tag field not found"))
	}
	tag, ok := raw.(string)
	if !ok {
		return nil, inField(e.tagField, errorf("expected a string tag, got %T", raw))
	}
	ref, ok := e.variants[tag]
	if !ok {
		return nil, inField(e.tagField, errorf("unknown tag %q (known tags: %v)", tag, e.tags))
	}
	enc, err := encoderOf(ref)
	if err != nil {
		return nil, err
	}
	ev, err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	if m, ok := ev.(map[string]any); ok {
		m[e.tagField] = tag
	}
	return ev, nil
}

type enumEncoder struct {
	name    string
	members []descriptor.EnumMember
}

func (e *enumEncoder) Encode(v any) (any, error) {
	for _, m := range e.members {
		if m.Matches(v) {
			return m.Name, nil
		}
	}
	return nil, errorf("value %v is not a member of enum %s", v, e.name)
}

func (EncoderExtractor) Primitive(p descriptor.Primitive) (engine.Artifact, error) {
	return &primitiveEncoder{prim: p}, nil
}

func (EncoderExtractor) Container(kind descriptor.ContainerKind, elems []*engine.Ref) (engine.Artifact, error) {
	switch kind {
	case descriptor.ContainerList:
		return &listEncoder{elem: elems[0]}, nil
	case descriptor.ContainerMap:
		return &mapEncoder{key: elems[0], val: elems[1]}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "container %s", kind)
}

func (EncoderExtractor) NamedProduct(t *descriptor.Type, fields []engine.ProductField) (engine.Artifact, error) {
	e := &recordEncoder{name: t.Name, fields: make([]fieldEncoder, 0, len(fields))}
	for _, f := range fields {
		e.fields = append(e.fields, fieldEncoder{
			name:     f.Name,
			ref:      f.Ref,
			required: f.Required,
			def:      f.Default,
		})
	}
	return e, nil
}

func (EncoderExtractor) AnonymousProduct(_ *descriptor.Type, elems []*engine.Ref) (engine.Artifact, error) {
	return &tupleEncoder{elems: elems}, nil
}

func (EncoderExtractor) AnonymousUnion(_ *descriptor.Type, alts []*engine.Ref, nilable bool) (engine.Artifact, error) {
	return &unionEncoder{alts: alts, nilable: nilable}, nil
}

func (EncoderExtractor) NamedUnion(t *descriptor.Type, tagField string, variants []engine.UnionVariant) (engine.Artifact, error) {
	e := &taggedEncoder{
		name:     t.Name,
		tagField: tagField,
		variants: make(map[string]*engine.Ref, len(variants)),
	}
	for _, v := range variants {
		e.tags = append(e.tags, v.Tag)
		e.variants[v.Tag] = v.Ref
	}
	return e, nil
}

func (EncoderExtractor) Enum(name string, members []descriptor.EnumMember) (engine.Artifact, error) {
	return &enumEncoder{name: name, members: members}, nil
}

func (EncoderExtractor) TypeVariable(name string) (engine.Artifact, error) {
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "unbound type variable %s", name)
}
