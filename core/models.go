package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for graph entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Query is a single natural-language request. It is created once per request
// and never mutated afterwards.
type Query struct {
	Text            string
	TraceID         string
	UserTokenBudget int // Upper bound on tokens the synthesizer may produce
	MaxResults      int // Maximum number of fused documents kept after retrieval
}

// Document is the unit of indexing. Every source backend stores documents
// keyed by ID.
type Document struct {
	ID        string
	Title     string
	Content   string
	URL       string
	Timestamp time.Time
	Metadata  map[string]string
	Entities  []string   // Entity names declared by the corpus (optional)
	Relations []Relation // Relations declared by the corpus (optional)
}

// Relation is a directed, labelled edge between two named entities.
type Relation struct {
	Subject   string
	Predicate string
	Object    string
}

// Entity is a node of the knowledge graph.
type Entity struct {
	Id   ID
	Name string
	Type string
}

// Edge connects two graph entities. Edges are traversed in both directions.
type Edge struct {
	From       ID
	To         ID
	Predicate  string
	DocumentID string // Document asserting the edge, empty for corpus-declared relations
}

// Other returns the endpoint of the edge opposite to id.
func (e *Edge) Other(id ID) ID {
	if e.From == id {
		return e.To
	}
	return e.From
}

// RawResult is a single hit reported by one source adapter. Raw scores are in
// whatever scale the backend uses; the retrieval engine normalizes them.
type RawResult struct {
	SourceID   string
	DocumentID string
	RawScore   float64
	Title      string
	Content    string
	URL        string
	Timestamp  time.Time
	Metadata   map[string]string
}

// EnhancedResult is the fused view of one document across every source that
// returned it.
type EnhancedResult struct {
	DocumentID    string
	Title         string
	Content       string
	Snippet       string
	URL           string
	CombinedScore float64            // Always within [0,1]
	SourceScores  map[string]float64 // Normalized score per contributing source id
	SourceTypes   []string           // Sorted set of contributing source kinds
	Metadata      map[string]string
}

// RetrievalOutcome is the result of one hybrid retrieval.
type RetrievalOutcome struct {
	Query           Query
	Results         []*EnhancedResult
	ConfidenceScore float64
	Empty           bool
	ProcessingTime  time.Duration
	SourceErrors    []*SourceError
}

// ProcessingTimeMs returns the processing time in whole milliseconds.
func (o *RetrievalOutcome) ProcessingTimeMs() int64 {
	return o.ProcessingTime.Milliseconds()
}

// DocumentIDs returns the ids of the fused results in rank order.
func (o *RetrievalOutcome) DocumentIDs() []string {
	ids := make([]string, 0, len(o.Results))
	for _, r := range o.Results {
		ids = append(ids, r.DocumentID)
	}
	return ids
}

// Citation references one evidence document cited by an answer.
type Citation struct {
	Index       int
	DocumentID  string
	Title       string
	URL         string
	SourceTypes []string
}

// Status summarizes how a pipeline run ended.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
)

// FinalResponse is what callers of the pipeline receive for every query.
type FinalResponse struct {
	Answer     string
	Confidence float64
	Citations  []Citation
	Status     Status
	Warnings   []string
	Metadata   map[string]any
	TraceID    string
}
