package metricsexp

import (
	"math/big"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/engine"
)

// ExporterExtractor derives Exporters. Wire it into an engine with
// NewEngine.
type ExporterExtractor struct{}

var _ engine.Extractor = ExporterExtractor{}

// NewEngine returns an engine that derives metrics exporters.
func NewEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(ExporterExtractor{}, opts...)
}

// ExporterFor extracts the exporter for t from an engine created with
// NewEngine.
func ExporterFor(e *engine.Engine, t *descriptor.Type) (Exporter, error) {
	a, err := e.Extract(t)
	if err != nil {
		return nil, err
	}
	exp, ok := a.(Exporter)
	if !ok {
		return nil, errors.Newf("engine produced %T, not a metrics exporter", a)
	}
	return exp, nil
}

func exporterOf(r *engine.Ref) (Exporter, error) {
	a, err := r.Artifact()
	if err != nil {
		return nil, err
	}
	exp, ok := a.(Exporter)
	if !ok {
		return nil, errors.Newf("artifact for %s is not a metrics exporter", r.TypeID())
	}
	return exp, nil
}

// valueExporter turns numbers into metric leaves.
type valueExporter struct {
	prim descriptor.Primitive
}

func (e *valueExporter) Tags([]string, any) (map[string]string, error) {
	return nil, nil
}

func (e *valueExporter) Export(path []string, v any) (Tree, error) {
	switch e.prim {
	case descriptor.PrimDuration:
		if d, ok := v.(time.Duration); ok {
			return leaf{name: joined(path), value: d.Seconds()}, nil
		}
	case descriptor.PrimDecimal:
		if r, ok := v.(*big.Rat); ok {
			f, _ := r.Float64()
			return leaf{name: joined(path), value: f}, nil
		}
	default:
		switch n := v.(type) {
		case float64:
			return leaf{name: joined(path), value: n}, nil
		case int:
			return leaf{name: joined(path), value: float64(n)}, nil
		case int64:
			return leaf{name: joined(path), value: float64(n)}, nil
		}
	}
	return nil, errors.Newf("cannot export %T as %s", v, e.prim)
}

// tagExporter turns strings into tags on the enclosing scope.
type tagExporter struct{}

func (tagExporter) Tags(path []string, v any) (map[string]string, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errors.Newf("expected a string, got %T", v)
	}
	return map[string]string{joined(path): s}, nil
}

func (tagExporter) Export([]string, any) (Tree, error) {
	return none{}, nil
}

type boolExporter struct{}

func (boolExporter) Tags(path []string, v any) (map[string]string, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.Newf("expected a boolean, got %T", v)
	}
	tag := "no"
	if b {
		tag = "yes"
	}
	return map[string]string{joined(path): tag}, nil
}

func (boolExporter) Export([]string, any) (Tree, error) {
	return none{}, nil
}

// dateExporter contributes calendar tags; withHour adds the hour for full
// timestamps.
type dateExporter struct {
	withHour bool
}

func (e *dateExporter) Tags(path []string, v any) (map[string]string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, errors.Newf("expected a time, got %T", v)
	}
	name := joined(path)
	tags := map[string]string{
		name + "_day":     strconv.Itoa(t.Day()),
		name + "_month":   strconv.Itoa(int(t.Month())),
		name + "_year":    strconv.Itoa(t.Year()),
		name + "_weekday": t.Weekday().String(),
	}
	if e.withHour {
		tags[name+"_hour"] = strconv.Itoa(t.Hour())
	}
	return tags, nil
}

func (e *dateExporter) Export([]string, any) (Tree, error) {
	return none{}, nil
}

type enumExporter struct {
	name    string
	members []descriptor.EnumMember
}

func (e *enumExporter) Tags(path []string, v any) (map[string]string, error) {
	for _, m := range e.members {
		if m.Matches(v) {
			return map[string]string{joined(path): m.Name}, nil
		}
	}
	return nil, errors.Newf("value %v is not a member of enum %s", v, e.name)
}

func (e *enumExporter) Export([]string, any) (Tree, error) {
	return none{}, nil
}

type fieldExporter struct {
	name string
	ref  *engine.Ref
}

// recordExporter hoists every field's tags over the whole record scope, so
// sibling leaves share them.
type recordExporter struct {
	name   string
	fields []fieldExporter
}

func (e *recordExporter) Tags([]string, any) (map[string]string, error) {
	return nil, nil
}

func (e *recordExporter) Export(path []string, v any) (Tree, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected a map value for record %s, got %T", e.name, v)
	}
	tags := make(map[string]string)
	children := make([]Tree, 0, len(e.fields))
	for _, f := range e.fields {
		exp, err := exporterOf(f.ref)
		if err != nil {
			return nil, err
		}
		fv := obj[f.name]
		fieldPath := append(append([]string{}, path...), f.name)
		ft, err := exp.Tags(fieldPath, fv)
		if err != nil {
			return nil, err
		}
		for k, tv := range ft {
			tags[k] = tv
		}
		tree, err := exp.Export(fieldPath, fv)
		if err != nil {
			return nil, err
		}
		children = append(children, tree)
	}
	var result Tree = branch{children: children}
	if len(tags) > 0 {
		result = tagged{tags: tags, inner: result}
	}
	return result, nil
}

// optionalExporter exports nothing for absent values.
type optionalExporter struct {
	inner *engine.Ref
}

func (e *optionalExporter) Tags(path []string, v any) (map[string]string, error) {
	if v == nil {
		return nil, nil
	}
	inner, err := exporterOf(e.inner)
	if err != nil {
		return nil, err
	}
	return inner.Tags(path, v)
}

func (e *optionalExporter) Export(path []string, v any) (Tree, error) {
	if v == nil {
		return none{}, nil
	}
	inner, err := exporterOf(e.inner)
	if err != nil {
		return nil, err
	}
	return inner.Export(path, v)
}

type listExporter struct {
	elem *engine.Ref
}

func (e *listExporter) Tags([]string, any) (map[string]string, error) {
	return nil, nil
}

func (e *listExporter) Export(path []string, v any) (Tree, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Newf("expected a slice, got %T", v)
	}
	elem, err := exporterOf(e.elem)
	if err != nil {
		return nil, err
	}
	children := make([]Tree, 0, len(items))
	for i, item := range items {
		itemPath := append(append([]string{}, path...), strconv.Itoa(i))
		tags, err := elem.Tags(itemPath, item)
		if err != nil {
			return nil, err
		}
		tree, err := elem.Export(itemPath, item)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			tree = tagged{tags: tags, inner: tree}
		}
		children = append(children, tree)
	}
	return branch{children: children}, nil
}

type mapExporter struct {
	val *engine.Ref
}

func (e *mapExporter) Tags([]string, any) (map[string]string, error) {
	return nil, nil
}

func (e *mapExporter) Export(path []string, v any) (Tree, error) {
	val, err := exporterOf(e.val)
	if err != nil {
		return nil, err
	}
	entries, ok := asEntries(v)
	if !ok {
		return nil, errors.Newf("expected a map, got %T", v)
	}
	children := make([]Tree, 0, len(entries))
	for k, mv := range entries {
		entryPath := append(append([]string{}, path...), k)
		tags, err := val.Tags(entryPath, mv)
		if err != nil {
			return nil, err
		}
		tree, err := val.Export(entryPath, mv)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			tree = tagged{tags: tags, inner: tree}
		}
		children = append(children, tree)
	}
	return branch{children: children}, nil
}

func asEntries(v any) (map[string]any, bool) {
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

// sealedExporter tags the scope with the variant discriminator and exports
// the variant beneath it.
type sealedExporter struct {
	name     string
	tagField string
	variants map[string]*engine.Ref
}

func (e *sealedExporter) Tags([]string, any) (map[string]string, error) {
	return nil, nil
}

func (e *sealedExporter) Export(path []string, v any) (Tree, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected a map value for sealed union %s, got %T", e.name, v)
	}
	tag, ok := obj[e.tagField].(string)
	if !ok {
		return nil, errors.Newf("missing tag field %s in value of %s", e.tagField, e.name)
	}
	ref, ok := e.variants[tag]
	if !ok {
		return nil, errors.Newf("unknown tag %q for sealed union %s", tag, e.name)
	}
	variant, err := exporterOf(ref)
	if err != nil {
		return nil, err
	}
	tree, err := variant.Export(path, v)
	if err != nil {
		return nil, err
	}
	return tagged{
		tags:  map[string]string{joined(path) + "." + e.tagField: tag},
		inner: tree,
	}, nil
}

type tupleExporter struct {
	elems []*engine.Ref
}

func (e *tupleExporter) Tags([]string, any) (map[string]string, error) {
	return nil, nil
}

func (e *tupleExporter) Export(path []string, v any) (Tree, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Newf("expected a slice, got %T", v)
	}
	if len(items) != len(e.elems) {
		return nil, errors.Newf("expected %d elements, got %d", len(e.elems), len(items))
	}
	children := make([]Tree, 0, len(items))
	for i, ref := range e.elems {
		elem, err := exporterOf(ref)
		if err != nil {
			return nil, err
		}
		itemPath := append(append([]string{}, path...), strconv.Itoa(i))
		tags, err := elem.Tags(itemPath, items[i])
		if err != nil {
			return nil, err
		}
		tree, err := elem.Export(itemPath, items[i])
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			tree = tagged{tags: tags, inner: tree}
		}
		children = append(children, tree)
	}
	return branch{children: children}, nil
}

func (ExporterExtractor) Primitive(p descriptor.Primitive) (engine.Artifact, error) {
	switch p {
	case descriptor.PrimInt, descriptor.PrimFloat, descriptor.PrimDecimal, descriptor.PrimDuration:
		return &valueExporter{prim: p}, nil
	case descriptor.PrimString:
		return tagExporter{}, nil
	case descriptor.PrimBool:
		return boolExporter{}, nil
	case descriptor.PrimDate:
		return &dateExporter{}, nil
	case descriptor.PrimTime:
		return &dateExporter{withHour: true}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "primitive %s", p)
}

func (ExporterExtractor) Container(kind descriptor.ContainerKind, elems []*engine.Ref) (engine.Artifact, error) {
	switch kind {
	case descriptor.ContainerList:
		return &listExporter{elem: elems[0]}, nil
	case descriptor.ContainerMap:
		return &mapExporter{val: elems[1]}, nil
	}
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "container %s", kind)
}

func (ExporterExtractor) NamedProduct(t *descriptor.Type, fields []engine.ProductField) (engine.Artifact, error) {
	e := &recordExporter{name: t.Name, fields: make([]fieldExporter, 0, len(fields))}
	for _, f := range fields {
		e.fields = append(e.fields, fieldExporter{name: f.Name, ref: f.Ref})
	}
	return e, nil
}

func (ExporterExtractor) AnonymousProduct(_ *descriptor.Type, elems []*engine.Ref) (engine.Artifact, error) {
	return &tupleExporter{elems: elems}, nil
}

// AnonymousUnion only supports optionals: a metric stream has no runtime
// shape information to branch on, so multi-alternative anonymous unions are
// rejected at derivation time.
func (ExporterExtractor) AnonymousUnion(t *descriptor.Type, alts []*engine.Ref, nilable bool) (engine.Artifact, error) {
	if len(alts) != 1 || !nilable {
		return nil, errors.Wrap(engine.ErrUnsupportedType, "anonymous union with multiple alternatives cannot be exported as metrics")
	}
	return &optionalExporter{inner: alts[0]}, nil
}

func (ExporterExtractor) NamedUnion(t *descriptor.Type, tagField string, variants []engine.UnionVariant) (engine.Artifact, error) {
	e := &sealedExporter{
		name:     t.Name,
		tagField: tagField,
		variants: make(map[string]*engine.Ref, len(variants)),
	}
	for _, v := range variants {
		e.variants[v.Tag] = v.Ref
	}
	return e, nil
}

func (ExporterExtractor) Enum(name string, members []descriptor.EnumMember) (engine.Artifact, error) {
	return &enumExporter{name: name, members: members}, nil
}

func (ExporterExtractor) TypeVariable(name string) (engine.Artifact, error) {
	return nil, errors.Wrapf(engine.ErrUnsupportedType, "unbound type variable %s", name)
}
