package sources

import "errors"

var (
	// ErrUnknownSource indicates that no adapter is registered under an id.
	ErrUnknownSource = errors.New("unknown source")

	// ErrDuplicateSource indicates that an id is already registered.
	ErrDuplicateSource = errors.New("source already registered")

	// ErrInvalidAdapter indicates a nil adapter or an empty adapter id.
	ErrInvalidAdapter = errors.New("invalid source adapter")

	// ErrUnknownKind indicates an unrecognized source kind.
	ErrUnknownKind = errors.New("unknown source kind")
)
