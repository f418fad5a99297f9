package verify

import (
	"strings"

	"github.com/poiesic/attest/core"
)

// DefaultChunkSize is the maximum chunk length in bytes.
const DefaultChunkSize = 400

type chunk struct {
	documentID string
	text       string
}

// ChunkText packs consecutive sentences of text into chunks of at most
// size bytes. A sentence longer than size is cut on word boundaries.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	var current []string
	length := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			length = 0
		}
	}

	for _, sentence := range SplitSentences(text) {
		for _, piece := range splitLong(sentence, size) {
			if length > 0 && length+1+len(piece) > size {
				flush()
			}
			if length > 0 {
				length++
			}
			current = append(current, piece)
			length += len(piece)
		}
	}
	flush()
	return chunks
}

// splitLong cuts s into word-aligned pieces of at most size bytes. A single
// word longer than size is kept whole.
func splitLong(s string, size int) []string {
	if len(s) <= size {
		return []string{s}
	}
	var pieces []string
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// evidenceChunks chunks every document. Documents without content fall back
// to their snippet, then their title.
func evidenceChunks(docs []*core.EnhancedResult, size int) [][]chunk {
	out := make([][]chunk, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		text := d.Content
		if strings.TrimSpace(text) == "" {
			text = d.Snippet
		}
		if strings.TrimSpace(text) == "" {
			text = d.Title
		}
		var chunks []chunk
		for _, c := range ChunkText(text, size) {
			chunks = append(chunks, chunk{documentID: d.DocumentID, text: c})
		}
		if len(chunks) > 0 {
			out = append(out, chunks)
		}
	}
	return out
}
