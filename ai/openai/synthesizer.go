package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/attest/ai"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyAnswer is returned when the model produced no answer text.
var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Synthesizer implements ai.Synthesizer using OpenAI-compatible chat APIs.
type Synthesizer struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

type synthesisResponse struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// newSynthesizer is an internal constructor that returns the concrete type.
func newSynthesizer(config *ai.Config) (*Synthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}

	return &Synthesizer{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-synthesizer"),
	}, nil
}

// NewSynthesizer creates a new answer synthesizer using the provided configuration.
//
// Returns ai.Synthesizer interface to enforce abstraction.
func NewSynthesizer(config *ai.Config) (ai.Synthesizer, error) {
	return newSynthesizer(config)
}

// Compose writes an answer for the request using the chat model.
func (s *Synthesizer) Compose(ctx context.Context, req ai.SynthesisRequest) (*ai.Synthesis, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSynthesisPrompt(req.Mode))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildSynthesisInput(req))},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(s.temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	var resp synthesisResponse
	if err := generateJSON(ctx, s.client, s.logger, content, &resp, opts...); err != nil {
		return nil, err
	}

	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	s.logger.Debug("composed answer",
		"mode", req.Mode,
		"documents", len(req.Documents),
		"facts", len(req.Facts),
		"length", len(answer))

	return &ai.Synthesis{
		Text:       answer,
		Confidence: clamp01(resp.Confidence),
		Mode:       req.Mode,
	}, nil
}
