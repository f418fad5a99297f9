package pipeline

import "errors"

var (
	// ErrClassifierRequired indicates a nil classifier was provided.
	ErrClassifierRequired = errors.New("classifier is required")

	// ErrRetrieverRequired indicates a nil retriever was provided.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrVerifierRequired indicates a nil verifier was provided.
	ErrVerifierRequired = errors.New("verifier is required")

	// ErrSynthesizerRequired indicates a nil synthesizer was provided.
	ErrSynthesizerRequired = errors.New("synthesizer is required")

	// ErrInvalidConfig indicates a configuration value out of range.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrStageTimeout indicates a stage did not finish within its budget.
	ErrStageTimeout = errors.New("stage exceeded its time budget")

	// ErrStagePanic indicates a stage panicked.
	ErrStagePanic = errors.New("stage panicked")

	// ErrEmptyAnswer indicates the synthesizer returned no text.
	ErrEmptyAnswer = errors.New("synthesizer returned an empty answer")
)
