package engine

import "github.com/cockroachdb/errors"

// Caller-facing errors. These abort the extraction of the enclosing
// top-level type and are fixed by changing the input descriptor or the
// registration order; artifacts already completed stay valid.
var (
	// ErrUnsupportedType reports a descriptor the classifier cannot place in
	// any shape.
	ErrUnsupportedType = errors.New("unsupported type shape")

	// ErrEmptyHierarchy reports a sealed union with no variants.
	ErrEmptyHierarchy = errors.New("sealed union has no variants")

	// ErrDuplicateDiscriminator reports two sealed-union variants sharing a
	// discriminator tag.
	ErrDuplicateDiscriminator = errors.New("duplicate discriminator tag")

	// ErrLateRegistration reports a custom recipe registered after an
	// instantiation of its generic type has already been extracted.
	ErrLateRegistration = errors.New("recipe registered after extraction")
)

// Engine-internal invariant violations. Observing either indicates a bug in
// the engine or in an extractor dereferencing a placeholder outside the
// recursive-embedding path.
var (
	// ErrDoubleCompletion reports a cache entry completed twice.
	ErrDoubleCompletion = errors.New("type artifact completed twice")

	// ErrNotReady reports a placeholder dereferenced before its type's
	// extraction finished.
	ErrNotReady = errors.New("artifact not ready")
)
