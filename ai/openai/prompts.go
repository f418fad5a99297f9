package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/attest/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "entity": {"type": "string", "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"},
          "type": {"type": "string"},
          "importance": {"type": "integer", "minimum": 1, "maximum": 10}
        },
        "required": ["entity", "type", "importance"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the named entities from the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble or
explanation. Start your response directly with { and end with }. Your output must follow this schema:

%s

Rules:
- Entity names must be lowercase, 1-4 words, singular form, exactly as they would appear in an encyclopedia title.
- Type field must match exactly one of the listed values: %s.
- Importance is an integer from 1 (peripheral) to 10 (the subject of the text).
- Include only entities explicitly mentioned in the text. Do not infer related entities.
- If no entities can be identified, return "entities": [].

Example:
Input: "Marie Curie discovered radium with Pierre Curie in Paris"
Output:
{
  "entities": [
    {"entity":"marie curie","type":"person","importance":10},
    {"entity":"radium","type":"chemical","importance":9},
    {"entity":"pierre curie","type":"person","importance":7},
    {"entity":"paris","type":"place","importance":5}
  ]
}`

// buildExtractionPrompt creates the system prompt with entity types embedded.
func buildExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.EntityTypes, ", "))
}

const synthesisRules = `Answer the question using ONLY the evidence provided.
Cite every factual sentence with the placeholder of the evidence it relies on, written exactly as [doc:ID].
Never invent document ids. If the evidence does not answer the question, say so plainly.
Respond with JSON only: {"answer": "<answer text>", "confidence": <number between 0 and 1>}.
The confidence reflects how completely the evidence answers the question.`

var modeInstructions = map[ai.SynthesisMode]string{
	ai.ModeDraft:    "Write a concise draft answer from the documents below.",
	ai.ModeVerified: "Write the final answer from the verified facts below. Do not restate the unsupported claims; if they matter to the question, mention that they could not be confirmed.",
	ai.ModeFallback: "The evidence could not be verified. Write a cautious answer from the documents below and keep claims close to their wording.",
}

const maxDocumentChars = 1500

// buildSynthesisPrompt creates the system prompt for a synthesis mode.
func buildSynthesisPrompt(mode ai.SynthesisMode) string {
	instruction, ok := modeInstructions[mode]
	if !ok {
		instruction = modeInstructions[ai.ModeFallback]
	}
	return synthesisRules + "\n\n" + instruction
}

// buildSynthesisInput renders the question and evidence for the user turn.
func buildSynthesisInput(req ai.SynthesisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", req.Query)

	if req.Mode == ai.ModeVerified {
		b.WriteString("\nVerified facts:\n")
		if len(req.Facts) == 0 {
			b.WriteString("(none)\n")
		}
		for _, f := range req.Facts {
			fmt.Fprintf(&b, "- %s [doc:%s]\n", f.Statement, f.DocumentID)
		}
		if len(req.Unsupported) > 0 {
			b.WriteString("\nUnsupported claims:\n")
			for _, s := range req.Unsupported {
				fmt.Fprintf(&b, "- %s\n", s)
			}
		}
		return b.String()
	}

	b.WriteString("\nDocuments:\n")
	if len(req.Documents) == 0 {
		b.WriteString("(none)\n")
	}
	for _, d := range req.Documents {
		fmt.Fprintf(&b, "\n[doc:%s] %s\n%s\n", d.DocumentID, d.Title, truncate(d.Content, maxDocumentChars))
	}
	return b.String()
}
