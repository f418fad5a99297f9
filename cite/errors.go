package cite

import "errors"

var (
	// ErrUnknownCitation indicates a placeholder naming a document that is
	// not among the cited sources.
	ErrUnknownCitation = errors.New("citation references unknown document")
)
