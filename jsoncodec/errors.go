package jsoncodec

import (
	"fmt"
	"strconv"
	"strings"
)

// Error is one decoding or encoding failure located by a JSON path such as
// "/items[2]/name".
type Error struct {
	Path    string
	Message string
}

func (e Error) String() string {
	return e.Path + ": " + e.Message
}

// Errors accumulates every failure found in one document instead of
// stopping at the first.
type Errors []Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.String()
	}
	return fmt.Sprintf("found %d error(s): [%s]", len(es), strings.Join(msgs, "; "))
}

func errorf(format string, args ...any) Errors {
	return Errors{{Message: fmt.Sprintf(format, args...)}}
}

// inField re-roots child errors under an object field.
func inField(name string, err error) Errors {
	return prefixed("/"+name, err)
}

// inIndex re-roots child errors under an array index.
func inIndex(i int, err error) Errors {
	return prefixed("["+strconv.Itoa(i)+"]", err)
}

func prefixed(seg string, err error) Errors {
	es := asErrors(err)
	out := make(Errors, len(es))
	for i, e := range es {
		out[i] = Error{Path: seg + e.Path, Message: e.Message}
	}
	return out
}

// asErrors lifts an arbitrary error into the accumulating form. Errors that
// are not path errors (such as a placeholder dereferenced too early) keep
// their message at the current path.
func asErrors(err error) Errors {
	if es, ok := err.(Errors); ok {
		return es
	}
	return Errors{{Message: err.Error()}}
}
