// Package faults classifies the failures the console reports to API callers.
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a console failure.
type Kind string

const (
	// KindConfigRead means the config document exists but could not be read or parsed.
	KindConfigRead Kind = "config_read"
	// KindConfigWrite means the config document could not be persisted.
	KindConfigWrite Kind = "config_write"
	// KindNotFound means a group index is outside the current list.
	KindNotFound Kind = "not_found"
	// KindGeneration means the client bundle generator failed or produced nothing.
	KindGeneration Kind = "generation"
)

// Error wraps an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap lets errors.Is/As reach the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, err error) error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Err: err}
}

// Newf formats a message and wraps it with kind.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
