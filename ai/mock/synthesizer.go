package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/poiesic/attest/ai"
)

// NoEvidenceAnswer is what MockSynthesizer answers without any evidence.
const NoEvidenceAnswer = "I could not find evidence to answer this question."

// MockSynthesizer is a test double for ai.Synthesizer.
// The default behavior is extractive: it quotes the first sentence of each
// document, or the verified facts, with citation placeholders.
type MockSynthesizer struct {
	// ComposeFunc is called by Compose if set.
	ComposeFunc func(ctx context.Context, req ai.SynthesisRequest) (*ai.Synthesis, error)

	callCount atomic.Int64
	lastMode  atomic.Value
}

// NewMockSynthesizer creates a mock synthesizer with default behavior.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

// Compose builds an extractive answer from the request.
func (m *MockSynthesizer) Compose(ctx context.Context, req ai.SynthesisRequest) (*ai.Synthesis, error) {
	m.callCount.Add(1)
	m.lastMode.Store(req.Mode)

	if m.ComposeFunc != nil {
		return m.ComposeFunc(ctx, req)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var parts []string
	confidence := 0.0

	switch req.Mode {
	case ai.ModeVerified:
		for _, f := range req.Facts {
			parts = append(parts, fmt.Sprintf("%s [doc:%s]", strings.TrimSpace(f.Statement), f.DocumentID))
			confidence += f.Similarity
		}
		if len(req.Facts) > 0 {
			confidence /= float64(len(req.Facts))
		}
	default:
		for i, d := range req.Documents {
			if i == 3 {
				break
			}
			parts = append(parts, fmt.Sprintf("%s [doc:%s]", firstSentence(d.Content), d.DocumentID))
		}
		if len(parts) > 0 {
			confidence = 0.8
		}
	}

	if len(parts) == 0 {
		return &ai.Synthesis{Text: NoEvidenceAnswer, Confidence: 0.3, Mode: req.Mode}, nil
	}

	return &ai.Synthesis{
		Text:       strings.Join(parts, " "),
		Confidence: confidence,
		Mode:       req.Mode,
	}, nil
}

// CallCount returns the number of times Compose was called.
func (m *MockSynthesizer) CallCount() int {
	return int(m.callCount.Load())
}

// LastMode returns the mode of the most recent Compose call.
func (m *MockSynthesizer) LastMode() ai.SynthesisMode {
	mode, _ := m.lastMode.Load().(ai.SynthesisMode)
	return mode
}

// Reset clears the call count and custom functions.
func (m *MockSynthesizer) Reset() {
	m.callCount.Store(0)
	m.ComposeFunc = nil
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text + "."
}
