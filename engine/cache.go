package engine

import (
	"github.com/cockroachdb/errors"

	"github.com/typefold/typefold/descriptor"
)

// cache maps type identities to their extraction state. An entry is created
// InProgress on first visit and transitions to Done exactly once, before the
// top-level Extract call that created it returns. The zero other transition
// is abandonment: a failed extraction removes its InProgress entry so a
// retry starts from scratch.
//
// The cache performs no locking of its own; the owning Engine serializes all
// access under its mutex.
type cache struct {
	entries map[descriptor.Identity]*entry
}

type entry struct {
	ref *Ref
	// generic is the base type name, used to refuse recipe registration for
	// a generic whose instantiation has already completed.
	generic string
	done    bool
}

func newCache() *cache {
	return &cache{entries: make(map[descriptor.Identity]*entry)}
}

// getOrCreate returns the entry's Ref and whether it already existed. On a
// miss it inserts a fresh InProgress entry whose Ref acts as the placeholder
// for the recursive-embedding path.
func (c *cache) getOrCreate(id descriptor.Identity, generic string) (*Ref, bool) {
	if ent, ok := c.entries[id]; ok {
		return ent.ref, true
	}
	ent := &entry{ref: newRef(id), generic: generic}
	c.entries[id] = ent
	return ent.ref, false
}

// complete transitions an entry InProgress → Done and back-fills its
// placeholder so every holder now observes the artifact.
func (c *cache) complete(id descriptor.Identity, a Artifact) error {
	ent, ok := c.entries[id]
	if !ok {
		return errors.Wrapf(ErrDoubleCompletion, "completing unknown type %s", id)
	}
	if ent.done || !ent.ref.fill(a) {
		return errors.Wrapf(ErrDoubleCompletion, "type %s", id)
	}
	ent.done = true
	return nil
}

// abandon discards an InProgress entry after a failed extraction. Done
// entries are never abandoned.
func (c *cache) abandon(id descriptor.Identity) {
	if ent, ok := c.entries[id]; ok && !ent.done {
		delete(c.entries, id)
	}
}

// get returns the finished artifact for an identity. It is the
// placeholder-intolerant read: an InProgress entry yields ErrNotReady.
func (c *cache) get(id descriptor.Identity) (Artifact, error) {
	ent, ok := c.entries[id]
	if !ok {
		return nil, errors.Newf("no artifact for type %s", id)
	}
	return ent.ref.Artifact()
}

// doneForGeneric reports whether any completed entry belongs to the named
// generic type.
func (c *cache) doneForGeneric(name string) bool {
	for _, ent := range c.entries {
		if ent.done && ent.generic == name {
			return true
		}
	}
	return false
}
