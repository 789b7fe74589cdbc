package ingest

import (
	"errors"
	"fmt"
)

// ErrorKind tags a pipeline failure with its cause so callers and tests can
// distinguish parse problems from lookup misses from storage failures without
// reading log text.
type ErrorKind string

const (
	// KindParse covers a payload that cannot be decoded at all.
	KindParse ErrorKind = "parse"
	// KindStorage covers a failed write to the canonical store.
	KindStorage ErrorKind = "storage"
	// KindLookup covers a reference to a taxonomy/store row that does not exist.
	KindLookup ErrorKind = "lookup"
	// KindFetch covers a failed external enrichment call.
	KindFetch ErrorKind = "fetch"
	// KindFatal covers failures outside the per-record boundary, such as an
	// unretrievable trigger object.
	KindFatal ErrorKind = "fatal"
)

// Error wraps an underlying failure with its kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError tags err with kind; nil stays nil.
func WrapError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindStorage for
// untagged failures inside a record transaction.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindStorage
}
