package descriptor

import "strings"

// Identity is the stable structural key of a type together with its generic
// bindings. Two descriptors with the same identity always classify the same
// way and share one artifact.
type Identity string

// Identity computes the identity of t with no generic bindings in scope.
func (t *Type) Identity() Identity {
	return IdentityUnder(t, nil)
}

// IdentityUnder computes the identity of t, resolving type-parameter
// references through resolve. A nil resolve, or a nil result for a name,
// leaves the parameter symbolic.
//
// Named types contribute their name and argument identities but never their
// fields, which keeps the computation total on self-referential and mutually
// recursive descriptor graphs.
func IdentityUnder(t *Type, resolve func(name string) *Type) Identity {
	var b strings.Builder
	writeIdentity(&b, t, resolve)
	return Identity(b.String())
}

// Substitute returns t with type-parameter references resolved through
// resolve, rewriting exactly the positions identity depends on: parameter
// references, structural children, and the argument lists of named types.
// Fields and variants stay untouched — the engine walks those under its
// binding context — which also keeps Substitute total on cyclic descriptor
// graphs. The input is never mutated; when nothing resolves, t itself is
// returned.
func Substitute(t *Type, resolve func(name string) *Type) *Type {
	if t == nil || resolve == nil {
		return t
	}
	switch t.Kind {
	case KindVar:
		if r := resolve(t.Var); r != nil {
			return Substitute(r, resolve)
		}
		return t

	case KindContainer, KindTuple:
		elems, changed := substituteAll(t.Elems, resolve)
		if !changed {
			return t
		}
		out := *t
		out.Elems = elems
		return &out

	case KindUnion:
		alts, changed := substituteAll(t.Alts, resolve)
		if !changed {
			return t
		}
		out := *t
		out.Alts = alts
		return &out

	default:
		args, changed := substituteAll(t.Args, resolve)
		if !changed {
			return t
		}
		out := *t
		out.Args = args
		return &out
	}
}

func substituteAll(ts []*Type, resolve func(string) *Type) ([]*Type, bool) {
	if len(ts) == 0 {
		return ts, false
	}
	changed := false
	out := make([]*Type, len(ts))
	for i, t := range ts {
		out[i] = Substitute(t, resolve)
		if out[i] != t {
			changed = true
		}
	}
	if !changed {
		return ts, false
	}
	return out, true
}

func writeIdentity(b *strings.Builder, t *Type, resolve func(string) *Type) {
	switch t.Kind {
	case KindVar:
		if resolve != nil {
			if r := resolve(t.Var); r != nil {
				writeIdentity(b, r, resolve)
				return
			}
		}
		b.WriteByte('$')
		b.WriteString(t.Var)

	case KindPrimitive:
		b.WriteString(string(t.Prim))

	case KindContainer:
		b.WriteString(string(t.Container))
		b.WriteByte('<')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			writeIdentity(b, e, resolve)
		}
		b.WriteByte('>')

	case KindTuple:
		b.WriteString("tuple<")
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			writeIdentity(b, e, resolve)
		}
		b.WriteByte('>')

	case KindUnion:
		b.WriteString("union<")
		for i, a := range t.Alts {
			if i > 0 {
				b.WriteByte('|')
			}
			writeIdentity(b, a, resolve)
		}
		if t.Nilable {
			if len(t.Alts) > 0 {
				b.WriteByte('|')
			}
			b.WriteString("nil")
		}
		b.WriteByte('>')

	default:
		// Named kinds: record, sealed, enum, opaque. The kind prefix keeps
		// declared names out of the structural vocabulary, so a record named
		// "int" stays distinct from the int primitive.
		b.WriteString(t.Kind.String())
		b.WriteByte(':')
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteByte('[')
			for i, a := range t.Args {
				if i > 0 {
					b.WriteByte(',')
				}
				writeIdentity(b, a, resolve)
			}
			b.WriteByte(']')
		}
	}
}
