package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrUnexpectedStatus    = errors.New("unexpected http status")
	ErrUnrecognizedCatalog = errors.New("unrecognized catalog response")
	ErrBulkTypeNotFound    = errors.New("bulk type not found in catalog")
	ErrNoPayloadFound      = errors.New("no json payload found")
	ErrAmbiguousPayload    = errors.New("more than one json payload found")
	ErrNotArray            = errors.New("payload is not a json array")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrSchemaMismatch      = errors.New("table schema mismatch")
	ErrTableMissing        = errors.New("table does not exist")
	ErrTableExists         = errors.New("table already exists")
)

// LocatorError reports a failure to resolve the dataset download URI.
type LocatorError struct {
	URL string
	Err error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locate dataset at %s: %v", e.URL, e.Err)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// FetchError reports a failure to download or unwrap the dataset.
type FetchError struct {
	URI string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch dataset %s: %v", e.URI, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a payload that is not an array of card objects.
// Index is the zero-based element position, or -1 for the top-level structure.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decode payload: %v", e.Err)
	}
	return fmt.Sprintf("decode element %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PrepareError reports a failure to set up the card tables for a run.
type PrepareError struct {
	Table string
	Err   error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare table %s: %v", e.Table, e.Err)
}

func (e *PrepareError) Unwrap() error { return e.Err }

// LoadError reports a failed batch insert. Batch is 1-based.
type LoadError struct {
	Batch int
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load batch %d: %v", e.Batch, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PromoteError reports a failed rename during the staging/live swap.
type PromoteError struct {
	Step string
	Err  error
}

func (e *PromoteError) Error() string {
	return fmt.Sprintf("promote (%s): %v", e.Step, e.Err)
}

func (e *PromoteError) Unwrap() error { return e.Err }
