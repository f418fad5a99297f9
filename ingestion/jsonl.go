package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/attest/core"
)

// record is the JSONL form of a document:
//
//	{"id":"d1","title":"Radium","content":"...","url":"...","timestamp":"2024-03-01T12:00:00Z",
//	 "metadata":{"lang":"en"},"entities":["Marie Curie"],
//	 "relations":[{"subject":"Marie Curie","predicate":"discovered","object":"Radium"}]}
//
// Only content is required. A missing id is derived from the content.
type record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	URL       string            `json:"url"`
	Timestamp *time.Time        `json:"timestamp"`
	Metadata  map[string]string `json:"metadata"`
	Entities  []string          `json:"entities"`
	Relations []relationRecord  `json:"relations"`
}

type relationRecord struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

func (r *record) document() *core.Document {
	doc := &core.Document{
		ID:       r.ID,
		Title:    r.Title,
		Content:  r.Content,
		URL:      r.URL,
		Metadata: r.Metadata,
		Entities: r.Entities,
	}
	if doc.ID == "" && doc.Content != "" {
		doc.ID = fmt.Sprintf("%016x", uint64(core.IDFromContent(doc.Content)))
	}
	if r.Timestamp != nil {
		doc.Timestamp = r.Timestamp.UTC()
	}
	for _, rel := range r.Relations {
		doc.Relations = append(doc.Relations, core.Relation{
			Subject:   rel.Subject,
			Predicate: rel.Predicate,
			Object:    rel.Object,
		})
	}
	return doc
}

// Decoder reads documents from a JSONL stream.
type Decoder struct {
	dec *json.Decoder
	n   int
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next valid document, or io.EOF at the end of the
// stream.
func (d *Decoder) Next() (*core.Document, error) {
	var rec record
	if err := d.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w %d: %w", ErrInvalidRecord, d.n+1, err)
	}
	d.n++
	doc := rec.document()
	if err := core.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("%w %d: %w", ErrInvalidRecord, d.n, err)
	}
	return doc, nil
}

// ReadDocuments decodes every document in a JSONL stream.
func ReadDocuments(r io.Reader) ([]*core.Document, error) {
	var docs []*core.Document
	dec := NewDecoder(r)
	for {
		doc, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}
