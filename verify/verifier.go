package verify

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultThreshold is the cosine similarity a sentence needs to count
	// as verified.
	DefaultThreshold = 0.75

	// DefaultFallbackThreshold is the content-word containment a sentence
	// needs to count as verified when embeddings are unavailable.
	DefaultFallbackThreshold = 0.8

	DefaultConcurrency = 4
	DefaultCacheSize   = 4096
)

// Verifier checks answers against evidence documents. It is safe for
// concurrent use.
type Verifier struct {
	embedder          ai.Embedder
	threshold         float64
	fallbackThreshold float64
	chunkSize         int
	concurrency       int
	cacheSize         int
	cache             *lru.Cache[string, []float32]
	logger            *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier) error

// WithEmbedder sets the embedding provider. Without one the Verifier always
// uses the keyword fallback.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(v *Verifier) error {
		v.embedder = embedder
		return nil
	}
}

// WithThreshold sets the cosine similarity threshold.
// Default is 0.75.
func WithThreshold(threshold float64) Option {
	return func(v *Verifier) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		v.threshold = threshold
		return nil
	}
}

// WithFallbackThreshold sets the containment threshold of the keyword
// fallback.
// Default is 0.8.
func WithFallbackThreshold(threshold float64) Option {
	return func(v *Verifier) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		v.fallbackThreshold = threshold
		return nil
	}
}

// WithChunkSize sets the maximum evidence chunk length in bytes.
func WithChunkSize(size int) Option {
	return func(v *Verifier) error {
		if size <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
		}
		v.chunkSize = size
		return nil
	}
}

// WithConcurrency sets how many evidence documents are embedded at once.
func WithConcurrency(n int) Option {
	return func(v *Verifier) error {
		v.concurrency = max(1, n)
		return nil
	}
}

// WithCacheSize sets the number of chunk embeddings kept in memory.
func WithCacheSize(n int) Option {
	return func(v *Verifier) error {
		if n > 0 {
			v.cacheSize = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
		return nil
	}
}

// NewVerifier creates a Verifier.
func NewVerifier(opts ...Option) (*Verifier, error) {
	v := &Verifier{
		threshold:         DefaultThreshold,
		fallbackThreshold: DefaultFallbackThreshold,
		chunkSize:         DefaultChunkSize,
		concurrency:       DefaultConcurrency,
		cacheSize:         DefaultCacheSize,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	cache, err := lru.New[string, []float32](v.cacheSize)
	if err != nil {
		return nil, err
	}
	v.cache = cache
	v.logger = v.logger.With("component", "verifier")
	return v, nil
}

type match struct {
	documentID string
	similarity float64
}

// Verify checks every factual sentence of answer against evidence. Embedding
// failures degrade to the keyword fallback; the only error returned is the
// context's.
func (v *Verifier) Verify(ctx context.Context, answer string, evidence []*core.EnhancedResult) (*core.VerificationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factual, opinions := classifySentences(answer)
	chunks := evidenceChunks(evidence, v.chunkSize)
	if len(chunks) == 0 {
		return skipped(len(factual), opinions), nil
	}

	method := core.MethodKeywordFallback
	threshold := v.fallbackThreshold
	var best []match

	if v.embedder != nil && len(factual) > 0 {
		matches, err := v.embeddingMatches(ctx, factual, chunks)
		switch {
		case err == nil:
			best, method, threshold = matches, core.MethodEmbedding, v.threshold
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			v.logger.Warn("embedding unavailable, using keyword fallback", "err", err)
		}
	} else if v.embedder != nil {
		method = core.MethodEmbedding
	}
	if best == nil {
		best = keywordMatches(factual, chunks)
	}

	outcome := &core.VerificationOutcome{
		TotalFactualSentences: len(factual),
		OpinionSentences:      opinions,
		Method:                method,
	}
	var total float64
	for i, sentence := range factual {
		m := best[i]
		if m.similarity >= threshold {
			outcome.Verified = append(outcome.Verified, core.VerifiedSentence{
				Sentence:      sentence,
				EvidenceDocID: m.documentID,
				Similarity:    m.similarity,
			})
			total += m.similarity
			continue
		}
		outcome.Unsupported = append(outcome.Unsupported, core.UnsupportedSentence{
			Sentence:   sentence,
			BestDocID:  m.documentID,
			Similarity: m.similarity,
		})
	}

	switch {
	case len(factual) == 0:
		outcome.Confidence = 1
		outcome.Summary = "No factual sentences to verify."
	case len(outcome.Verified) > 0:
		ratio := float64(len(outcome.Verified)) / float64(len(factual))
		outcome.Confidence = min(1, ratio*total/float64(len(outcome.Verified)))
		fallthrough
	default:
		outcome.Summary = fmt.Sprintf("Verified %d of %d factual sentences against %d documents (%s).",
			len(outcome.Verified), len(factual), len(chunks), method)
	}

	v.logger.Debug("verification complete",
		"method", method,
		"factual", len(factual),
		"verified", len(outcome.Verified),
		"opinions", opinions,
		"confidence", outcome.Confidence)
	return outcome, nil
}

func classifySentences(answer string) (factual []string, opinions int) {
	for _, s := range SplitSentences(answer) {
		if IsOpinion(s) {
			opinions++
			continue
		}
		factual = append(factual, s)
	}
	return factual, opinions
}

func skipped(factual, opinions int) *core.VerificationOutcome {
	confidence := 0.0
	if factual == 0 {
		confidence = 1
	}
	return &core.VerificationOutcome{
		Summary:               "Verification was not possible: no evidence documents were available.",
		TotalFactualSentences: factual,
		OpinionSentences:      opinions,
		Confidence:            confidence,
		Method:                core.MethodSkipped,
	}
}

func (v *Verifier) embeddingMatches(ctx context.Context, sentences []string, docs [][]chunk) ([]match, error) {
	sentenceVecs, err := v.embed(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}

	chunkVecs := make([][][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, chunks := range docs {
		g.Go(func() error {
			texts := make([]string, len(chunks))
			for j, c := range chunks {
				texts[j] = c.text
			}
			vecs, err := v.embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed evidence %s: %w", chunks[0].documentID, err)
			}
			chunkVecs[i] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := make([]match, len(sentences))
	for i, sv := range sentenceVecs {
		best[i].similarity = -1
		for d, chunks := range docs {
			for j, c := range chunks {
				if sim := CosineSimilarity(sv, chunkVecs[d][j]); sim > best[i].similarity {
					best[i] = match{documentID: c.documentID, similarity: sim}
				}
			}
		}
		best[i].similarity = max(0, min(1, best[i].similarity))
	}
	return best, nil
}

// embed returns one vector per text, serving repeated texts from the cache.
func (v *Verifier) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if vec, ok := v.cache.Get(t); ok {
			vecs[i] = vec
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vecs, nil
	}

	computed, err := v.embedder.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(computed), len(missing))
	}
	for k, vec := range computed {
		vecs[missingIdx[k]] = vec
		v.cache.Add(missing[k], vec)
	}
	return vecs, nil
}

func keywordMatches(sentences []string, docs [][]chunk) []match {
	type wordChunk struct {
		documentID string
		words      map[string]struct{}
	}
	var indexed []wordChunk
	for _, chunks := range docs {
		for _, c := range chunks {
			indexed = append(indexed, wordChunk{documentID: c.documentID, words: core.ContentWordSet(c.text)})
		}
	}

	best := make([]match, len(sentences))
	for i, s := range sentences {
		words := core.ContentWordSet(s)
		best[i] = match{similarity: -1}
		for _, c := range indexed {
			if sim := containment(words, c.words); sim > best[i].similarity {
				best[i] = match{documentID: c.documentID, similarity: sim}
			}
		}
	}
	return best
}
