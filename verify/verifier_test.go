package verify

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/attest/ai/mock"
	"github.com/poiesic/attest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicEmbedder maps texts onto a few fixed topics so related phrasings
// embed identically.
type topicEmbedder struct {
	calls atomic.Int32
	texts atomic.Int32
}

var topics = [][]string{
	{"sky"},
	{"blue"},
	{"radium", "polonium"},
	{"curie"},
}

func (e *topicEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *topicEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	e.texts.Add(int32(len(texts)))
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(topics)+1)
		vec[len(topics)] = 0.01
		lower := strings.ToLower(text)
		for t, words := range topics {
			for _, w := range words {
				if strings.Contains(lower, w) {
					vec[t] = 1
				}
			}
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func evidence(id, content string) *core.EnhancedResult {
	return &core.EnhancedResult{DocumentID: id, Title: id, Content: content}
}

func TestNewVerifier(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v, err := NewVerifier()
		require.NoError(t, err)
		assert.Equal(t, DefaultThreshold, v.threshold)
		assert.Equal(t, DefaultFallbackThreshold, v.fallbackThreshold)
		assert.Nil(t, v.embedder)
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		_, err := NewVerifier(WithThreshold(1.5))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
		_, err = NewVerifier(WithFallbackThreshold(-0.1))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		_, err := NewVerifier(WithChunkSize(0))
		assert.ErrorIs(t, err, ErrInvalidChunkSize)
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		v, err := NewVerifier(WithLogger(nil), WithConcurrency(0), WithCacheSize(-1))
		require.NoError(t, err)
		assert.Equal(t, 1, v.concurrency)
		assert.Equal(t, DefaultCacheSize, v.cacheSize)
	})
}

func TestVerify_FactualAndOpinionSentences(t *testing.T) {
	v, err := NewVerifier(WithEmbedder(&topicEmbedder{}))
	require.NoError(t, err)

	outcome, err := v.Verify(context.Background(),
		"The sky is blue. I believe this is beautiful.",
		[]*core.EnhancedResult{evidence("sky", "the sky appears blue due to Rayleigh scattering")})
	require.NoError(t, err)

	assert.Equal(t, core.MethodEmbedding, outcome.Method)
	assert.Equal(t, 1, outcome.TotalFactualSentences)
	assert.Equal(t, 1, outcome.OpinionSentences)
	require.Len(t, outcome.Verified, 1)
	assert.Equal(t, "The sky is blue.", outcome.Verified[0].Sentence)
	assert.Equal(t, "sky", outcome.Verified[0].EvidenceDocID)
	assert.Empty(t, outcome.Unsupported)
	assert.InDelta(t, 1.0, outcome.Confidence, 1e-6)
	assert.Contains(t, outcome.Summary, "Verified 1 of 1")
}

func TestVerify_UnsupportedSentence(t *testing.T) {
	v, err := NewVerifier(WithEmbedder(&topicEmbedder{}))
	require.NoError(t, err)

	outcome, err := v.Verify(context.Background(),
		"Marie Curie discovered radium. The sky is blue.",
		[]*core.EnhancedResult{
			evidence("curie", "Curie isolated radium and polonium."),
			evidence("other", "Unrelated text about rivers."),
		})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.TotalFactualSentences)
	require.Len(t, outcome.Verified, 1)
	assert.Equal(t, "curie", outcome.Verified[0].EvidenceDocID)
	require.Len(t, outcome.Unsupported, 1)
	assert.Equal(t, "The sky is blue.", outcome.Unsupported[0].Sentence)
	assert.Less(t, outcome.Unsupported[0].Similarity, DefaultThreshold)
	assert.InDelta(t, 0.5, outcome.Confidence, 1e-6)
}

func TestVerify_KeywordFallbackWithoutEmbedder(t *testing.T) {
	v, err := NewVerifier()
	require.NoError(t, err)

	outcome, err := v.Verify(context.Background(),
		"The sky is blue. I believe this is beautiful.",
		[]*core.EnhancedResult{evidence("sky", "the sky appears blue due to Rayleigh scattering")})
	require.NoError(t, err)

	assert.Equal(t, core.MethodKeywordFallback, outcome.Method)
	assert.Equal(t, 1, outcome.TotalFactualSentences)
	require.Len(t, outcome.Verified, 1)
	assert.InDelta(t, 1.0, outcome.Verified[0].Similarity, 1e-9)
	assert.InDelta(t, 1.0, outcome.Confidence, 1e-9)
}

func TestVerify_FallbackKeepsSentenceCounts(t *testing.T) {
	answer := "Marie Curie discovered radium. Dr. Curie taught at the Sorbonne. It might have been 1898. The lab was small."
	docs := []*core.EnhancedResult{
		evidence("d1", "Marie Curie discovered radium and polonium."),
		evidence("d2", "She taught at the Sorbonne in Paris."),
	}

	embedder := mock.NewMockEmbedder()
	withEmbedder, err := NewVerifier(WithEmbedder(embedder))
	require.NoError(t, err)
	primary, err := withEmbedder.Verify(context.Background(), answer, docs)
	require.NoError(t, err)

	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service unavailable")
	}
	failing, err := NewVerifier(WithEmbedder(embedder))
	require.NoError(t, err)
	degraded, err := failing.Verify(context.Background(), answer, docs)
	require.NoError(t, err)

	assert.Equal(t, core.MethodEmbedding, primary.Method)
	assert.Equal(t, core.MethodKeywordFallback, degraded.Method)
	assert.Equal(t, 3, primary.TotalFactualSentences)
	assert.Equal(t, primary.TotalFactualSentences, degraded.TotalFactualSentences)
	assert.Equal(t, primary.OpinionSentences, degraded.OpinionSentences)
	assert.Equal(t, len(degraded.Verified)+len(degraded.Unsupported), degraded.TotalFactualSentences)
}

func TestVerify_NoEvidenceIsSkipped(t *testing.T) {
	embedder := &topicEmbedder{}
	v, err := NewVerifier(WithEmbedder(embedder))
	require.NoError(t, err)

	outcome, err := v.Verify(context.Background(), "The sky is blue. Radium glows.", nil)
	require.NoError(t, err)

	assert.Equal(t, core.MethodSkipped, outcome.Method)
	assert.Equal(t, 2, outcome.TotalFactualSentences)
	assert.Empty(t, outcome.Verified)
	assert.Zero(t, outcome.Confidence)
	assert.Contains(t, outcome.Summary, "not possible")
	assert.Zero(t, embedder.calls.Load())
}

func TestVerify_NoFactualSentences(t *testing.T) {
	v, err := NewVerifier(WithEmbedder(&topicEmbedder{}))
	require.NoError(t, err)

	outcome, err := v.Verify(context.Background(), "I think so. Perhaps.",
		[]*core.EnhancedResult{evidence("d1", "Some evidence.")})
	require.NoError(t, err)

	assert.Zero(t, outcome.TotalFactualSentences)
	assert.Equal(t, 2, outcome.OpinionSentences)
	assert.Equal(t, 1.0, outcome.Confidence)
}

func TestVerify_CachesChunkEmbeddings(t *testing.T) {
	embedder := &topicEmbedder{}
	v, err := NewVerifier(WithEmbedder(embedder))
	require.NoError(t, err)
	docs := []*core.EnhancedResult{evidence("sky", "The sky appears blue.")}

	_, err = v.Verify(context.Background(), "The sky is blue.", docs)
	require.NoError(t, err)
	first := embedder.texts.Load()

	_, err = v.Verify(context.Background(), "The sky is blue.", docs)
	require.NoError(t, err)
	assert.Equal(t, first, embedder.texts.Load())
}

func TestVerify_ContextDeadline(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, _ []string) ([][]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	v, err := NewVerifier(WithEmbedder(embedder))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = v.Verify(ctx, "The sky is blue.", []*core.EnhancedResult{evidence("d1", "The sky is blue.")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
