package sources

import (
	"context"
	"fmt"

	"github.com/poiesic/attest/core"
)

// Kind classifies an adapter by the scale of the scores it reports. The
// retrieval engine normalizes and weights results by kind.
type Kind string

const (
	KindVector       Kind = "vector"       // Similarity scores already in [0,1]
	KindLexical      Kind = "lexical"      // BM25-style scores, unbounded above
	KindGraph        Kind = "graph"        // Hop-distance scores in [0,1]
	KindEncyclopedic Kind = "encyclopedic" // Rank-derived scores in [0,1]
	KindAuxiliary    Kind = "auxiliary"
)

// Kinds lists every known kind.
var Kinds = []Kind{KindVector, KindLexical, KindGraph, KindEncyclopedic, KindAuxiliary}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Adapter is a backend-specific client exposing a uniform search interface.
//
// Search must honor ctx: the retrieval engine bounds every call with a
// deadline and abandons calls that outlive it. Implementations must be safe
// for concurrent use.
type Adapter interface {
	// ID returns the unique id the adapter is registered under.
	ID() string

	// Kind reports the scale of the adapter's raw scores.
	Kind() Kind

	// Search returns at most limit hits for query. An adapter with no
	// matches returns an empty slice and no error.
	Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error)
}
