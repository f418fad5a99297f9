package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityExtractor finds named entities in text. The knowledge graph is built
// from its output at indexing time and seeded from it at query time.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities analyzes text and returns the entities it mentions with
	// their types and importance scores.
	// Returns an empty slice if no entities are found.
	ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error)
}

// ExtractedEntity represents an entity identified in text.
type ExtractedEntity struct {
	// Name is the entity in lowercase, 1-4 words, singular form.
	// Example: "marie curie", "radium", "sorbonne"
	Name string

	// Type categorizes the entity (e.g., "person", "place", "organization").
	Type string

	// Importance is a score from 1-10 indicating how central this entity
	// is to the text.
	Importance int
}

// Synthesizer composes natural-language answers from evidence.
// Implementations must be thread-safe for concurrent use.
type Synthesizer interface {
	// Compose writes an answer for req.Query. Citations are emitted as
	// "[doc:<id>]" placeholders referencing documents in req.Documents or the
	// evidence ids of req.Facts. Confidence is within [0,1].
	Compose(ctx context.Context, req SynthesisRequest) (*Synthesis, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// EntityExtractor returns the entity extraction service.
	EntityExtractor() EntityExtractor

	// Synthesizer returns the answer composition service.
	Synthesizer() Synthesizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
