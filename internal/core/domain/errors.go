package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a required setting is missing or malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or cannot be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Store Errors.

	// ErrStoreUnavailable indicates the vector store cannot be reached or
	// rejected the credentials.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrCollectionNotFound indicates a record was written to a collection
	// that has not been ensured.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionConfig indicates an existing collection has a different schema.
	ErrCollectionConfig = errors.New("collection schema conflict")

	// ErrDimensionMismatch indicates a vector length disagrees with the
	// collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// excerptLength is the number of runes kept from a chunk in error messages.
const excerptLength = 64

// Excerpt shortens text for logs and errors.
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:excerptLength]) + "..."
}

// FetchError reports that a page could not be loaded or rendered.
type FetchError struct {
	URL string
	Err error
}

// NewFetchError wraps err with the URL that failed.
func NewFetchError(url string, err error) *FetchError {
	return &FetchError{URL: url, Err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed embedding call for one text.
type EmbeddingError struct {
	Excerpt string
	Err     error
}

// NewEmbeddingError wraps err with an excerpt of the text being embedded.
func NewEmbeddingError(text string, err error) *EmbeddingError {
	return &EmbeddingError{Excerpt: Excerpt(text), Err: err}
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed %q: %v", e.Excerpt, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a vector whose length disagrees with the
// collection schema.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %s expects %d dimensions, got %d", e.Collection, e.Want, e.Got)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// CheckDimension returns a DimensionMismatchError if vector does not have
// exactly want elements.
func CheckDimension(collection string, want int, vector []float32) error {
	if len(vector) != want {
		return &DimensionMismatchError{Collection: collection, Want: want, Got: len(vector)}
	}
	return nil
}

// StoreUnavailableError reports a connectivity or authorisation failure
// talking to the vector store.
type StoreUnavailableError struct {
	Op  string
	Err error
}

// NewStoreUnavailableError wraps err with the store operation that failed.
func NewStoreUnavailableError(op string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Err: err}
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// Is matches ErrStoreUnavailable.
func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// CollectionConfigError reports an existing collection whose schema differs
// from the one requested.
type CollectionConfigError struct {
	Name      string
	Existing  CollectionSchema
	Requested CollectionSchema
}

func (e *CollectionConfigError) Error() string {
	return fmt.Sprintf("collection %s exists with schema %s, requested %s",
		e.Name, e.Existing, e.Requested)
}

// Is matches ErrCollectionConfig.
func (e *CollectionConfigError) Is(target error) bool {
	return target == ErrCollectionConfig
}
