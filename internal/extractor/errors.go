package extractor

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNavigation Kind = iota + 1
	KindMissingElement
	KindWrite
)

var (
	ErrNavigation     = errors.New("navigation failed")
	ErrMissingElement = errors.New("element not found")
	ErrWrite          = errors.New("write failed")
)

func (k Kind) String() string {
	switch k {
	case KindNavigation:
		return "navigation"
	case KindMissingElement:
		return "missing element"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNavigation:
		return ErrNavigation
	case KindMissingElement:
		return ErrMissingElement
	case KindWrite:
		return ErrWrite
	default:
		return nil
	}
}

// Error is returned by Extractor.Run. Row is the zero-based row index, or -1
// when the failure happened before any row was read.
type Error struct {
	Kind     Kind
	Op       string
	Selector string
	Row      int
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Op
	if e.Row >= 0 {
		msg += fmt.Sprintf(" (row %d)", e.Row+1)
	}
	if e.Selector != "" {
		msg += fmt.Sprintf(": %q", e.Selector)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
