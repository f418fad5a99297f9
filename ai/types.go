package ai

import "github.com/poiesic/attest/core"

// EntityTypes defines the valid categories for extracted entities.
var EntityTypes = []string{
	"abstract_concept",
	"artifact",
	"chemical",
	"disease",
	"event",
	"field_of_study",
	"language",
	"law",
	"measurement",
	"natural_phenomenon",
	"organism",
	"organization",
	"person",
	"place",
	"programming_language",
	"software",
	"technology",
	"time",
	"work",
}

// SynthesisMode selects what evidence an answer is composed from.
type SynthesisMode string

const (
	// ModeDraft composes a first answer straight from retrieved documents.
	// Drafts are verified before the final answer is written.
	ModeDraft SynthesisMode = "draft"

	// ModeVerified composes from verified facts only and lists unsupported
	// claims so a disclaimer can be attached.
	ModeVerified SynthesisMode = "verified"

	// ModeFallback composes from raw documents when verification failed or
	// was skipped.
	ModeFallback SynthesisMode = "fallback"
)

// Fact is a verified sentence together with the document that supports it.
type Fact struct {
	Statement  string
	DocumentID string
	Similarity float64
}

// SynthesisRequest is the input of Synthesizer.Compose.
type SynthesisRequest struct {
	Query       string
	Mode        SynthesisMode
	Facts       []Fact                 // ModeVerified
	Unsupported []string               // ModeVerified
	Documents   []*core.EnhancedResult // ModeDraft and ModeFallback, also the citable set
	MaxTokens   int                    // 0 leaves the limit to the model
}

// Synthesis is the output of Synthesizer.Compose.
type Synthesis struct {
	Text       string
	Confidence float64
	Mode       SynthesisMode
}
