package chunker

import "errors"

var (
	// ErrInvalidChunkSize is returned when a Generator is created with a
	// non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")
)
