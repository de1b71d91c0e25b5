// Package engine implements the type-driven extraction core: it classifies
// type descriptors, walks them depth-first exactly once per distinct
// identity, and lets a pluggable Extractor combine child artifacts into
// parent artifacts. Recursive types terminate because the cache hands out a
// write-once placeholder Ref for types whose extraction is still in
// progress.
package engine

import (
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/typefold/typefold/descriptor"
)

// ProductField is the per-field view an Extractor receives for a named
// product.
type ProductField struct {
	Name string
	Ref  *Ref

	// Required is false when the field has a default or its type is an
	// optional union.
	Required bool

	// Default is the declared default value, if any.
	Default *descriptor.Default
}

// UnionVariant is the per-variant view an Extractor receives for a named
// union.
type UnionVariant struct {
	// Tag is the discriminator value selecting this variant.
	Tag string
	Ref *Ref
}

// Extractor supplies the shape-specific combination hooks. Each hook turns
// the already-extracted children (held as Refs) into the parent artifact.
// Hooks run synchronously during Extract; they must not dereference a child
// Ref eagerly, since on the recursive path the Ref resolves only after the
// enclosing extraction completes.
type Extractor interface {
	Primitive(p descriptor.Primitive) (Artifact, error)
	Container(kind descriptor.ContainerKind, elems []*Ref) (Artifact, error)
	NamedProduct(t *descriptor.Type, fields []ProductField) (Artifact, error)
	AnonymousProduct(t *descriptor.Type, elems []*Ref) (Artifact, error)
	AnonymousUnion(t *descriptor.Type, alts []*Ref, nilable bool) (Artifact, error)
	NamedUnion(t *descriptor.Type, tagField string, variants []UnionVariant) (Artifact, error)
	Enum(name string, members []descriptor.EnumMember) (Artifact, error)
	TypeVariable(name string) (Artifact, error)
}

// Recipe derives the artifact for one instantiation of a custom-functional
// type, given the already-derived artifacts of its type arguments. The
// recipe is the combination hook for the custom shape; there is no further
// extractor callback. Like extractor hooks, a recipe runs while the engine's
// lock is held: calling back into Extract or Register on the same engine
// deadlocks.
type Recipe func(args []*Ref) (Artifact, error)

// Engine owns the extraction cache and the custom-recipe registry for one
// Extractor. Engines are safe for concurrent use; independent engines share
// nothing.
type Engine struct {
	mu      sync.Mutex
	ext     Extractor
	cache   *cache
	recipes map[string]Recipe
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger; the engine emits debug-level lines for
// classifications, cache hits, and completions.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine around the given extractor.
func New(ext Extractor, opts ...Option) *Engine {
	e := &Engine{
		ext:     ext,
		cache:   newCache(),
		recipes: make(map[string]Recipe),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register installs a custom recipe for the named generic type. A later
// registration for the same name replaces an earlier one, but registering
// after any instantiation of the type has been extracted fails with
// ErrLateRegistration.
func (e *Engine) Register(generic string, r Recipe) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache.doneForGeneric(generic) {
		return errors.Wrapf(ErrLateRegistration, "recipe for %s", generic)
	}
	e.recipes[generic] = r
	return nil
}

// Extract derives the artifact for t, reusing cached artifacts for every
// identity seen before. The walk is depth-first, left-to-right, in
// declaration order; it runs on the calling goroutine, under the engine's
// lock, and performs no I/O. Extractor hooks and recipes therefore must not
// re-enter the engine.
func (e *Engine) Extract(t *descriptor.Type) (Artifact, error) {
	if t == nil {
		return nil, errors.Wrap(ErrUnsupportedType, "nil descriptor")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ref, err := e.derive(t, nil)
	if err != nil {
		return nil, err
	}
	return ref.Artifact()
}

func (e *Engine) hasRecipe(name string) bool {
	_, ok := e.recipes[name]
	return ok
}

// bindings maps type-parameter names to the concrete descriptors they are
// bound to in the current branch of the walk.
type bindings map[string]*descriptor.Type

func (b bindings) resolve(name string) *descriptor.Type {
	return b[name]
}

// derive returns the Ref for t under the current bindings, extracting it
// first unless it is already cached. A cache hit on an InProgress entry is
// the cycle-breaking step: it only happens when the current call is nested
// inside the extraction of the same identity, and the returned placeholder
// is filled before that outer extraction returns.
func (e *Engine) derive(t *descriptor.Type, binds bindings) (*Ref, error) {
	if t.Kind == descriptor.KindVar {
		if bound := binds.resolve(t.Var); bound != nil {
			t = bound
		}
	}

	id := descriptor.IdentityUnder(t, binds.resolve)
	ref, existing := e.cache.getOrCreate(id, t.Name)
	if existing {
		e.log.Debug("cache hit",
			zap.String("type", string(id)),
			zap.Bool("resolved", ref.Resolved()))
		return ref, nil
	}

	art, err := e.deriveNew(t, id, binds)
	if err != nil {
		e.cache.abandon(id)
		return nil, err
	}
	if err := e.cache.complete(id, art); err != nil {
		return nil, err
	}
	e.log.Debug("completed", zap.String("type", string(id)))
	return ref, nil
}

// deriveNew classifies t, extracts its children, and invokes the
// shape-specific hook.
func (e *Engine) deriveNew(t *descriptor.Type, id descriptor.Identity, binds bindings) (Artifact, error) {
	// Hooks receive the bound form of the descriptor: arguments that
	// reference enclosing type parameters are substituted first, so identity
	// computed from the hook's descriptor always equals the cache identity.
	t = descriptor.Substitute(t, binds.resolve)

	if len(t.Params) > 0 {
		next, err := bindParams(t, binds)
		if err != nil {
			return nil, err
		}
		binds = next
	}

	shape, err := Classify(t, e.hasRecipe)
	if err != nil {
		return nil, err
	}
	e.log.Debug("classified",
		zap.String("type", string(id)),
		zap.Stringer("shape", shape))

	switch shape {
	case ShapeCustom:
		recipe := e.recipes[t.Name]
		args, err := e.deriveAll(t.Args, binds)
		if err != nil {
			return nil, err
		}
		return recipe(args)

	case ShapeTypeVariable:
		return e.ext.TypeVariable(t.Var)

	case ShapePrimitive:
		return e.ext.Primitive(t.Prim)

	case ShapeNamedUnion:
		if len(t.Variants) == 0 {
			return nil, errors.Wrapf(ErrEmptyHierarchy, "type %s", t.Name)
		}
		seen := make(map[string]bool, len(t.Variants))
		variants := make([]UnionVariant, 0, len(t.Variants))
		for _, v := range t.Variants {
			if seen[v.Tag] {
				return nil, errors.Wrapf(ErrDuplicateDiscriminator, "tag %q in type %s", v.Tag, t.Name)
			}
			seen[v.Tag] = true
			ref, err := e.derive(v.Type, binds)
			if err != nil {
				return nil, err
			}
			variants = append(variants, UnionVariant{Tag: v.Tag, Ref: ref})
		}
		tagField := t.TagField
		if tagField == "" {
			tagField = t.Name
		}
		return e.ext.NamedUnion(t, tagField, variants)

	case ShapeAnonymousUnion:
		alts, err := e.deriveAll(t.Alts, binds)
		if err != nil {
			return nil, err
		}
		return e.ext.AnonymousUnion(t, alts, t.Nilable)

	case ShapeNamedProduct:
		fields := make([]ProductField, 0, len(t.Fields))
		for _, f := range t.Fields {
			ref, err := e.derive(f.Type, binds)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ProductField{
				Name:     f.Name,
				Ref:      ref,
				Required: f.Default == nil && !optionalUnder(f.Type, binds),
				Default:  f.Default,
			})
		}
		return e.ext.NamedProduct(t, fields)

	case ShapeAnonymousProduct:
		elems, err := e.deriveAll(t.Elems, binds)
		if err != nil {
			return nil, err
		}
		return e.ext.AnonymousProduct(t, elems)

	case ShapeContainer:
		elems, err := e.deriveAll(t.Elems, binds)
		if err != nil {
			return nil, err
		}
		return e.ext.Container(t.Container, elems)

	case ShapeEnum:
		return e.ext.Enum(t.Name, t.Members)
	}

	return nil, errors.Wrapf(ErrUnsupportedType, "shape %s", shape)
}

func (e *Engine) deriveAll(ts []*descriptor.Type, binds bindings) ([]*Ref, error) {
	refs := make([]*Ref, len(ts))
	for i, t := range ts {
		ref, err := e.derive(t, binds)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

// bindParams extends the binding context for an instantiated generic type.
// Arguments that are themselves parameter references must already be bound
// in the enclosing context.
func bindParams(t *descriptor.Type, binds bindings) (bindings, error) {
	if len(t.Args) != len(t.Params) {
		return nil, errors.Wrapf(ErrUnsupportedType,
			"generic %s instantiated with %d of %d arguments", t.Name, len(t.Args), len(t.Params))
	}
	next := make(bindings, len(binds)+len(t.Params))
	for k, v := range binds {
		next[k] = v
	}
	for i, p := range t.Params {
		arg := t.Args[i]
		if arg.Kind == descriptor.KindVar {
			bound := binds.resolve(arg.Var)
			if bound == nil {
				return nil, errors.Wrapf(ErrUnsupportedType,
					"unbound type parameter %s in instantiation of %s", arg.Var, t.Name)
			}
			arg = bound
		}
		next[p] = arg
	}
	return next, nil
}

// optionalUnder reports whether a field type, after resolving a possible
// parameter reference, is an optional union.
func optionalUnder(t *descriptor.Type, binds bindings) bool {
	if t.Kind == descriptor.KindVar {
		if bound := binds.resolve(t.Var); bound != nil {
			t = bound
		}
	}
	return t.IsOptional()
}
