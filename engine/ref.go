package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
)

// Artifact is the opaque product of extracting one type. The engine never
// looks inside it; only the extractor that produced it knows its concrete
// type.
type Artifact = any

// Ref is a shared, write-once handle to the artifact of a single type
// identity. The cache hands the same Ref to every consumer of the type, so a
// Ref created while its type is still being extracted (the recursive case)
// observes the finished artifact once the enclosing extraction completes.
//
// Extractor hooks receive children as Refs and must hold the indirection:
// dereference lazily, at artifact-use time, never inside the hook itself.
type Ref struct {
	id   descriptor.Identity
	cell atomic.Pointer[box]
}

// box keeps a nil Artifact distinguishable from "not filled yet".
type box struct {
	artifact Artifact
}

func newRef(id descriptor.Identity) *Ref {
	return &Ref{id: id}
}

// TypeID returns the identity of the type this handle belongs to. It is
// available before resolution, which lets reference-by-name consumers (such
// as schema generators) name a type they hold only a placeholder for.
func (r *Ref) TypeID() descriptor.Identity {
	return r.id
}

// Resolved reports whether the artifact has been filled in.
func (r *Ref) Resolved() bool {
	return r.cell.Load() != nil
}

// Artifact returns the resolved artifact, or ErrNotReady while the type's
// extraction is still in progress.
func (r *Ref) Artifact() (Artifact, error) {
	if b := r.cell.Load(); b != nil {
		return b.artifact, nil
	}
	return nil, errors.Wrapf(ErrNotReady, "type %s", r.id)
}

// fill publishes the artifact. It succeeds exactly once.
func (r *Ref) fill(a Artifact) bool {
	return r.cell.CompareAndSwap(nil, &box{artifact: a})
}
