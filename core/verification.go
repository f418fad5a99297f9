package core

// VerificationMethod records how sentences were compared with evidence.
type VerificationMethod string

const (
	MethodEmbedding       VerificationMethod = "embedding"
	MethodKeywordFallback VerificationMethod = "keyword_fallback"
	MethodSkipped         VerificationMethod = "skipped"
)

// VerifiedSentence is a factual sentence backed by evidence.
type VerifiedSentence struct {
	Sentence      string
	EvidenceDocID string
	Similarity    float64
}

// UnsupportedSentence is a factual sentence no evidence chunk supports well
// enough. The closest document is kept for diagnostics.
type UnsupportedSentence struct {
	Sentence   string
	BestDocID  string
	Similarity float64
}

// VerificationOutcome is the result of checking an answer against evidence.
type VerificationOutcome struct {
	Summary               string
	Verified              []VerifiedSentence
	Unsupported           []UnsupportedSentence
	TotalFactualSentences int
	OpinionSentences      int
	Confidence            float64
	Method                VerificationMethod
}
