package ingestion

import "errors"

var (
	// ErrNoSinks is returned when an Indexer is created without sinks.
	ErrNoSinks = errors.New("at least one sink is required")

	// ErrNilSink is returned when a sink is nil.
	ErrNilSink = errors.New("sink cannot be nil")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidBatchSize is returned when a batch size is <= 0.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrInvalidRecord is returned for a corpus line that is not a document.
	ErrInvalidRecord = errors.New("invalid document record")

	// ErrGraphRequired is returned when a graph repository is not provided.
	ErrGraphRequired = errors.New("graph repository required")

	// ErrDocumentsRequired is returned when a document repository is not provided.
	ErrDocumentsRequired = errors.New("document repository required")
)
