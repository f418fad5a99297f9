package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tmc/langchaingo/llms"
)

const maxJSONAttempts = 3

// errNoChoices is returned when the model answers without any choice.
var errNoChoices = errors.New("model returned no choices")

// generateJSON asks the model for a JSON document and decodes it into out.
// Malformed responses are repaired first and requested again when repair is
// not enough.
func generateJSON(ctx context.Context, client llms.Model, logger *slog.Logger, content []llms.MessageContent, out any, opts ...llms.CallOption) error {
	opts = append(opts, llms.WithJSONMode())

	var lastErr error
	for attempt := 0; attempt < maxJSONAttempts; attempt++ {
		response, err := client.GenerateContent(ctx, content, opts...)
		if err != nil {
			logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}

		if len(response.Choices) < 1 {
			return errNoChoices
		}

		responseText := cleanJSON(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		return nil
	}

	logger.Error("failed to parse model response after retries", "err", lastErr)
	return lastErr
}

// cleanJSON strips markdown code fences and repairs common JSON mistakes.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s
	}
	return repaired
}
