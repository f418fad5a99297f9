package verify

import (
	"math"

	"github.com/poiesic/attest/core"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the vectors differ in length or either is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Containment is the containment form of Jaccard token overlap used when
// no embedder is available: |S∩E| / |S| over content words, where S is the
// sentence and E the evidence. It is 0 when sentence has no content words.
func Containment(sentence, evidence string) float64 {
	return containment(core.ContentWordSet(sentence), core.ContentWordSet(evidence))
}

func containment(sentence, evidence map[string]struct{}) float64 {
	if len(sentence) == 0 {
		return 0
	}
	shared := 0
	for w := range sentence {
		if _, ok := evidence[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(sentence))
}
