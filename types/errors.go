package types

import "fmt"

// RetrievalError means the vector index was unreachable or the query
// failed. Surfaced to the caller, never retried internally.
type RetrievalError struct {
	Err error
}

func (e RetrievalError) Error() string {
	return fmt.Sprintf("vector index unavailable: %v", e.Err)
}

func (e RetrievalError) Unwrap() error { return e.Err }

func NewRetrievalError(err error) RetrievalError {
	return RetrievalError{Err: err}
}

// GenerationError means the inference endpoint was unreachable,
// rejected the request, or returned a malformed response.
type GenerationError struct {
	Err error
}

func (e GenerationError) Error() string {
	return fmt.Sprintf("generation endpoint unavailable: %v", e.Err)
}

func (e GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(err error) GenerationError {
	return GenerationError{Err: err}
}

// PersistenceError means the durable local session log could not be
// written. It aborts the turn; cold-storage mirroring failures are
// logged and swallowed instead and never carry this type.
type PersistenceError struct {
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("session log write failed: %v", e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(err error) PersistenceError {
	return PersistenceError{Err: err}
}
