package mock

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/poiesic/attest/ai"
)

// sentenceStarters are capitalized only because they open a sentence.
var sentenceStarters = map[string]bool{
	"a": true, "an": true, "the": true, "what": true, "who": true, "whom": true,
	"how": true, "why": true, "when": true, "where": true, "which": true, "is": true,
	"are": true, "was": true, "were": true, "do": true, "does": true, "did": true,
	"can": true, "could": true, "in": true, "it": true, "this": true, "that": true,
	"i": true, "compare": true, "explain": true, "describe": true, "tell": true,
}

// MockEntityExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockEntityExtractor struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, runs of capitalized words become entities.
	ExtractEntitiesFunc func(ctx context.Context, text string) ([]ai.ExtractedEntity, error)

	callCount atomic.Int64
}

// NewMockEntityExtractor creates a mock entity extractor with default behavior.
func NewMockEntityExtractor() *MockEntityExtractor {
	return &MockEntityExtractor{}
}

// ExtractEntities returns every run of capitalized words in text as a
// lowercase entity. The first run gets importance 10, later runs one less each.
func (m *MockEntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	m.callCount.Add(1)

	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, text)
	}

	var (
		entities []ai.ExtractedEntity
		run      []string
		seen     = map[string]bool{}
	)
	importance := 10
	flush := func() {
		if len(run) == 0 {
			return
		}
		name := strings.ToLower(strings.Join(run, " "))
		run = run[:0]
		if seen[name] {
			return
		}
		seen[name] = true
		entities = append(entities, ai.ExtractedEntity{Name: name, Type: "abstract_concept", Importance: importance})
		if importance > 1 {
			importance--
		}
	}

	sentenceStart := true
	for _, word := range strings.Fields(text) {
		trimmed := strings.TrimRight(word, ".,!?;:\"')]}")
		clean := strings.TrimLeft(trimmed, "\"'([{")
		first := []rune(clean)
		if len(first) > 0 && unicode.IsUpper(first[0]) && clean != "I" && !(sentenceStart && sentenceStarters[strings.ToLower(clean)]) {
			run = append(run, clean)
		} else {
			flush()
		}
		if trimmed != word {
			flush()
		}
		sentenceStart = strings.ContainsAny(word[len(trimmed):], ".!?")
	}
	flush()

	if entities == nil {
		entities = []ai.ExtractedEntity{}
	}
	return entities, nil
}

// CallCount returns the number of times ExtractEntities was called.
func (m *MockEntityExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockEntityExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractEntitiesFunc = nil
}
