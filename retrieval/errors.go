package retrieval

import "errors"

var (
	// ErrRegistryRequired indicates that no source registry was supplied.
	ErrRegistryRequired = errors.New("source registry is required")

	// ErrInvalidRequest indicates a malformed retrieval request.
	ErrInvalidRequest = errors.New("invalid retrieval request")

	// ErrUnknownStrategy indicates an unrecognized fusion strategy name.
	ErrUnknownStrategy = errors.New("unknown fusion strategy")

	// ErrInvalidWeights indicates negative or all-zero fusion weights.
	ErrInvalidWeights = errors.New("invalid fusion weights")
)
