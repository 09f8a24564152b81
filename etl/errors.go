package etl

import "errors"

var (
	// ErrSourceRequired is returned when a runner is created without a source.
	ErrSourceRequired = errors.New("row source is required")

	// ErrSinkRequired is returned when a writer or runner is created without a sink.
	ErrSinkRequired = errors.New("chunk sink is required")

	// ErrGeneratorRequired is returned when a runner is created without a generator.
	ErrGeneratorRequired = errors.New("chunk generator is required")

	// ErrInvalidBatchSize is returned when batchSize is <= 0.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrCommitFailed wraps a sink commit failure. Commits are never retried:
	// a run that hits one stops with the sink at its last completed commit.
	ErrCommitFailed = errors.New("batch commit failed")
)
