// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder,
// ai.EntityExtractor, ai.Synthesizer and ai.AIProvider for use in unit tests.
// The mocks run without external AI services and behave deterministically.
//
// # Usage in Tests
//
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("embedding service down")
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: hashed bag-of-words vectors, so texts sharing words are similar
//   - MockEntityExtractor: runs of capitalized words become entities
//   - MockSynthesizer: extractive answers with [doc:ID] placeholders
//
// All mocks are safe for concurrent use as long as the Func fields are set
// before the mock is shared.
package mock
