// Package confdec derives decoders for configuration trees — the generic
// values produced by parsing YAML or TOML. Configuration input is looser
// than JSON, so leaves coerce: numbers and booleans may arrive as strings,
// durations are strings like "250ms", and a scalar where a list is expected
// is promoted to a one-element list.
package confdec

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/engine"
)

// Decoder validates and coerces a parsed configuration tree into the value
// form of its type. Errors report the config path that failed.
type Decoder interface {
	Decode(v any) (any, error)
}

// Extractor derives Decoders. Wire it into an engine with NewEngine.
type Extractor struct{}

var _ engine.Extractor = Extractor{}

// NewEngine returns an engine that derives configuration decoders.
func NewEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(Extractor{}, opts...)
}

// DecoderFor extracts the decoder for t from an engine created with
// NewEngine.
func DecoderFor(e *engine.Engine, t *descriptor.Type) (Decoder, error) {
	a, err := e.Extract(t)
	if err != nil {
		return nil, err
	}
	d, ok := a.(Decoder)
	if !ok {
		return nil, errors.Newf("engine produced %T, not a config decoder", a)
	}
	return d, nil
}

func decoderOf(r *engine.Ref) (Decoder, error) {
	a, err := r.Artifact()
	if err != nil {
		return nil, err
	}
	d, ok := a.(Decoder)
	if !ok {
		return nil, errors.Newf("artifact for %s is not a config decoder", r.TypeID())
	}
	return d, nil
}

// at wraps an error with the config path segment that produced it.
func at(seg string, err error) error {
	return errors.Wrapf(err, "at %s", seg)
}

type leafDecoder struct {
	prim descriptor.Primitive
}

func (d *leafDecoder) Decode(v any) (any, error) {
	switch d.prim {
	case descriptor.PrimBool:
		return coerceBool(v)
	case descriptor.PrimInt:
		return coerceInt(v)
	case descriptor.PrimFloat:
		return coerceFloat(v)
	case descriptor.PrimString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, errors.Newf("expected a string, got %T", v)
	case descriptor.PrimDecimal:
		return coerceDecimal(v)
	case descriptor.PrimDuration:
		return coerceDuration(v)
	case descriptor.PrimDate:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		if s, ok := v.(string); ok {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return nil, errors.Newf("invalid date %q", s)
			}
			return t, nil
		}
		return nil, errors.Newf("expected a date, got %T", v)
	case descriptor.PrimTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		if s, ok := v.(string); ok {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, errors.Newf("invalid timestamp %q", s)
			}
			return t, nil
		}
		return nil, errors.Newf("expected a timestamp, got %T", v)
	}
	return nil, errors.Newf("unknown primitive %s", d.prim)
}

func coerceBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(b) {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
		return nil, errors.Newf("cannot read %q as a boolean", b)
	}
	return nil, errors.Newf("expected a boolean, got %T", v)
}

func coerceInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		if float64(int64(n)) != n {
			return nil, errors.Newf("expected an integer, got %v", n)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, errors.Newf("cannot read %q as an integer", n)
		}
		return i, nil
	}
	return nil, errors.Newf("expected an integer, got %T", v)
}

func coerceFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, errors.Newf("cannot read %q as a number", n)
		}
		return f, nil
	}
	return nil, errors.Newf("expected a number, got %T", v)
}

func coerceDecimal(v any) (any, error) {
	switch n := v.(type) {
	case *big.Rat:
		return n, nil
	case string:
		r, ok := new(big.Rat).SetString(n)
		if !ok {
			return nil, errors.Newf("cannot read %q as a decimal", n)
		}
		return r, nil
	case int:
		return new(big.Rat).SetInt64(int64(n)), nil
	case int64:
		return new(big.Rat).SetInt64(n), nil
	case float64:
		return new(big.Rat).SetFloat64(n), nil
	}
	return nil, errors.Newf("expected a decimal, got %T", v)
}

func coerceDuration(v any) (any, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		dur, err := time.ParseDuration(d)
		if err != nil {
			return nil, errors.Newf("cannot read %q as a duration", d)
		}
		return dur, nil
	}
	return nil, errors.Newf("expected a duration string, got %T", v)
}

type listDecoder struct {
	elem *engine.Ref
}

func (d *listDecoder) Decode(v any) (any, error) {
	elem, err := decoderOf(d.elem)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		// Scalar promotion: a single value stands for a one-element list.
		dv, err := elem.Decode(v)
		if err != nil {
			return nil, err
		}
		return []any{dv}, nil
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		dv, err := elem.Decode(item)
		if err != nil {
			return nil, at("["+strconv.Itoa(i)+"]", err)
		}
		out = append(out, dv)
	}
	return out, nil
}

type mapDecoder struct {
	key *engine.Ref
	val *engine.Ref
}

func (d *mapDecoder) Decode(v any) (any, error) {
	obj, ok := asTree(v)
	if !ok {
		return nil, errors.Newf("expected a mapping, got %T", v)
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
	for k, raw := range obj {
		dk, err := key.Decode(k)
		if err != nil {
			return nil, at(k, err)
		}
		dv, err := val.Decode(raw)
		if err != nil {
			return nil, at(k, err)
		}
		out[dk] = dv
	}
	return out, nil
}

type fieldDecoder struct {
	name     string
	ref      *engine.Ref
	required bool
	def      *descriptor.Default
}

type sectionDecoder struct {
	name   string
	fields []fieldDecoder
}

func (d *sectionDecoder) Decode(v any) (any, error) {
	obj, ok := asTree(v)
	if !ok {
		return nil, errors.Newf("expected a section for %s, got %T", d.name, v)
	}
	out := make(map[string]any, len(d.fields))
	for _, f := range d.fields {
		raw, present := obj[f.name]
		if !present || raw == nil {
			switch {
			case f.def != nil:
				out[f.name] = f.def.Value
			case !f.required:
				out[f.name] = nil
			default:
				return nil, at(f.name, errors.New("required setting not found"))
			}
			continue
		}
		dec, err := decoderOf(f.ref)
		if err != nil {
			return nil, err
		}
		dv, err := dec.Decode(raw)
		if err != nil {
			return nil, at(f.name, err)
		}
		out[f.name] = dv
	}
	return out, nil
}

type tupleDecoder struct {
	elems []*engine.Ref
}

func (d *tupleDecoder) Decode(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Newf("expected a list, got %T", v)
	}
	if len(items) != len(d.elems) {
		return nil, errors.Newf("expected %d elements, got %d", len(d.elems), len(items))
	}
	out := make([]any, len(items))
	for i, ref := range d.elems {
		dec, err := decoderOf(ref)
		if err != nil {
			return nil, err
		}
		dv, err := dec.Decode(items[i])
		if err != nil {
			return nil, at("["+strconv.Itoa(i)+"]", err)
		}
		out[i] = dv
	}
	return out, nil
}

type unionDecoder struct {
	alts    []*engine.Ref
	nilable bool
}

func (d *unionDecoder) Decode(v any) (any, error) {
	if v == nil {
		if d.nilable {
			return nil, nil
		}
		return nil, errors.New("unexpected empty value")
	}
	var last error
	for _, alt := range d.alts {
		dec, err := decoderOf(alt)
		if err != nil {
			return nil, err
		}
		dv, err := dec.Decode(v)
		if err == nil {
			return dv, nil
		}
		last = err
	}
	if last == nil {
		return nil, errors.New("union has no alternatives")
	}
	return nil, errors.Wrap(last, "no union alternative matched")
}

type taggedDecoder struct {
	name     string
	tagField string
	tags     []string
	variants map[string]*engine.Ref
}

func (d *taggedDecoder) Decode(v any) (any, error) {
	obj, ok := asTree(v)
	if !ok {
		return nil, errors.Newf("expected a section for %s, got %T", d.name, v)
	}
	raw, present := obj[d.tagField]
	if !present {
		return nil, at(d.tagField, errors.New("required tag setting not found"))
	}
	tag, ok := raw.(string)
	if !ok {
		return nil, at(d.tagField, errors.Newf("expected a string tag, got %T", raw))
	}
	ref, ok := d.variants[tag]
	if !ok {
		return nil, at(d.tagField, errors.Newf("unknown tag %q (known tags: %v)", tag, d.tags))
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

type enumDecoder struct {
	name    string
	members []descriptor.EnumMember
}

func (d *enumDecoder) Decode(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errors.Newf("expected a string for enum %s, got %T", d.name, v)
	}
	for _, m := range d.members {
		if m.Name == s {
			return m.Value, nil
		}
	}
	return nil, errors.Newf("unexpected value %q for enum %s", s, d.name)
}

// asTree normalizes the mapping forms config parsers produce.
func asTree(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, mv := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = mv
		}
		return out, true
	}
	return nil, false
}

func (Extractor) Primitive(p descriptor.Primitive) (engine.Artifact, error) {
	return &leafDecoder{prim: p}, nil
}

func (Extractor) Container(kind descriptor.ContainerKind, elems []*engine.Ref) (engine.Artifact, error) {
	switch kind {
	case descriptor.ContainerList:
		return &listDecoder{elem: elems[0]}, nil
	case descriptor.ContainerMap:
		return &mapDecoder{key: elems[0], val: elems[1]}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "container %s", kind)
}

func (Extractor) NamedProduct(t *descriptor.Type, fields []engine.ProductField) (engine.Artifact, error) {
	d := &sectionDecoder{name: t.Name, fields: make([]fieldDecoder, 0, len(fields))}
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

func (Extractor) AnonymousProduct(_ *descriptor.Type, elems []*engine.Ref) (engine.Artifact, error) {
	return &tupleDecoder{elems: elems}, nil
}

func (Extractor) AnonymousUnion(_ *descriptor.Type, alts []*engine.Ref, nilable bool) (engine.Artifact, error) {
	return &unionDecoder{alts: alts, nilable: nilable}, nil
}

func (Extractor) NamedUnion(t *descriptor.Type, tagField string, variants []engine.UnionVariant) (engine.Artifact, error) {
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

func (Extractor) Enum(name string, members []descriptor.EnumMember) (engine.Artifact, error) {
	return &enumDecoder{name: name, members: members}, nil
}

func (Extractor) TypeVariable(name string) (engine.Artifact, error) {
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "unbound type variable %s", name)
}
