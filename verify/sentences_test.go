package verify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple",
			text: "The sky is blue. I believe this is beautiful.",
			want: []string{"The sky is blue.", "I believe this is beautiful."},
		},
		{
			name: "question and exclamation",
			text: "Is it blue? Yes! It is.",
			want: []string{"Is it blue?", "Yes!", "It is."},
		},
		{
			name: "abbreviations",
			text: "Metals, e.g. iron, rust in water. Dr. Curie won twice.",
			want: []string{"Metals, e.g. iron, rust in water.", "Dr. Curie won twice."},
		},
		{
			name: "decimal numbers",
			text: "Pi is about 3.14 in value. It is irrational.",
			want: []string{"Pi is about 3.14 in value.", "It is irrational."},
		},
		{
			name: "initials",
			text: "J. Robert Oppenheimer led the lab. It was in New Mexico.",
			want: []string{"J. Robert Oppenheimer led the lab.", "It was in New Mexico."},
		},
		{
			name: "closing quote",
			text: `He said "stop." Then he left.`,
			want: []string{`He said "stop."`, "Then he left."},
		},
		{
			name: "paragraph without punctuation",
			text: "First heading\n\nBody text here.",
			want: []string{"First heading", "Body text here."},
		},
		{
			name: "sentence ending in no",
			text: "The answer was no. We moved on.",
			want: []string{"The answer was no.", "We moved on."},
		},
		{
			name: "street abbreviation ends a sentence",
			text: "He lives on Main St. The sky is blue.",
			want: []string{"He lives on Main St.", "The sky is blue."},
		},
		{
			name: "street abbreviation inside a sentence",
			text: "The shop on Main St. near the park is open.",
			want: []string{"The shop on Main St. near the park is open."},
		},
		{
			name: "month before a number",
			text: "It opened on Dec. 5 in Paris. Crowds came.",
			want: []string{"It opened on Dec. 5 in Paris.", "Crowds came."},
		},
		{
			name: "company at end of sentence",
			text: "She worked for Acme Co. Later she retired.",
			want: []string{"She worked for Acme Co.", "Later she retired."},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestIsOpinion(t *testing.T) {
	opinions := []string{
		"I believe this is beautiful.",
		"I think Go is simpler.",
		"In my opinion, tabs are better.",
		"This is arguably the best approach.",
		"It might rain tomorrow.",
		"Perhaps the lab was closed.",
	}
	for _, s := range opinions {
		assert.True(t, IsOpinion(s), s)
	}

	facts := []string{
		"The sky is blue.",
		"Marie Curie discovered radium in 1898.",
		"The sky appears blue due to Rayleigh scattering.",
		"Water boils at 100 degrees Celsius at sea level.",
	}
	for _, s := range facts {
		assert.False(t, IsOpinion(s), s)
	}
}

func TestChunkText(t *testing.T) {
	text := strings.Repeat("This sentence has exactly forty bytes!! ", 25)

	chunks := ChunkText(text, 100)

	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
}

func TestChunkText_LongSentence(t *testing.T) {
	text := strings.Repeat("word ", 50) + "end."

	chunks := ChunkText(text, 40)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 40)
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))

	assert.InDelta(t, 1.0, Containment("The sky is blue.", "the sky appears blue due to Rayleigh scattering"), 1e-9)
	assert.InDelta(t, 0.5, Containment("The sky is green.", "the sky appears blue"), 1e-9)
	assert.Zero(t, Containment("it is", "anything"))

	long := "the sky appears blue due to Rayleigh scattering of sunlight in the upper atmosphere"
	assert.InDelta(t, 1.0, Containment("The sky is blue.", long), 1e-9, "extra evidence words do not lower the score")
	assert.InDelta(t, 0.0, Containment("The sky is blue.", "Rayleigh scattering"), 1e-9)
}
