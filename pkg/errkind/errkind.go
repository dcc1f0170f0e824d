package errkind

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies errors surfaced to query callers.
type Kind int

const (
	Internal Kind = iota
	MalformedGeoMetadata
	UnsupportedDataType
	UnsupportedGeometry
	Unimplemented
	WKBParse
	Unsupported
	Plan
	NotFound
)

func (k Kind) String() string {
	switch k {
	case MalformedGeoMetadata:
		return "malformed geo metadata"
	case UnsupportedDataType:
		return "unsupported data type"
	case UnsupportedGeometry:
		return "unsupported geometry"
	case Unimplemented:
		return "unimplemented"
	case WKBParse:
		return "wkb parse"
	case Unsupported:
		return "unsupported operation"
	case Plan:
		return "plan"
	case NotFound:
		return "not found"
	default:
		return "internal"
	}
}

// Error carries a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Cause() error { return e.Err }

// New creates an error of the given kind with a stack trace.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// Wrap annotates err and tags it with kind. A nil err returns nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

// KindOf returns the kind of the outermost tagged error in the chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
