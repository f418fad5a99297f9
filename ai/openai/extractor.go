// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/attest/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	client        llms.Model
	minImportance int
	logger        *slog.Logger
}

// entity is an internal type used for JSON unmarshaling.
type entity struct {
	Entity     string `json:"entity"`
	Type       string `json:"type"`
	Importance int    `json:"importance"`
}

// extraction is the wrapper structure for the model's JSON response.
type extraction struct {
	Entities []entity `json:"entities"`
}

func newChatClient(config *ai.Config) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
}

// newEntityExtractor is an internal constructor that returns the concrete type.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}

	return &EntityExtractor{
		client:        client,
		minImportance: config.MinImportance,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// ExtractEntities extracts named entities from text using an LLM.
// Entities below the configured minimum importance are dropped.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	text = scrubString(text)
	if text == "" {
		return []ai.ExtractedEntity{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildExtractionPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var result extraction
	if err := generateJSON(ctx, e.client, e.logger, content, &result, llms.WithTemperature(0.0)); err != nil {
		if errors.Is(err, errNoChoices) {
			e.logger.Debug("no choices returned from model")
			return []ai.ExtractedEntity{}, nil
		}
		return nil, err
	}

	extracted := make([]ai.ExtractedEntity, 0, len(result.Entities))
	for _, c := range result.Entities {
		name := strings.TrimSpace(strings.ToLower(c.Entity))
		if name == "" || c.Importance < e.minImportance {
			continue
		}
		extracted = append(extracted, ai.ExtractedEntity{
			Name:       name,
			Type:       strings.ReplaceAll(strings.TrimSpace(c.Type), " ", "_"),
			Importance: c.Importance,
		})
	}

	slices.SortStableFunc(extracted, func(a, b ai.ExtractedEntity) int {
		return b.Importance - a.Importance
	})

	e.logger.Debug("extracted entities",
		"total", len(result.Entities),
		"filtered", len(extracted))

	return extracted, nil
}
