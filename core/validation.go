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


package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultMaxResults is used when a query does not specify MaxResults.
	DefaultMaxResults = 10
	// MaxResultsLimit is the largest accepted MaxResults value.
	MaxResultsLimit = 100
	// DefaultTokenBudget is used when a query does not specify a token budget.
	DefaultTokenBudget = 1024
)

// QueryOption customizes a Query built by NewQuery.
type QueryOption func(*Query)

// WithTraceID overrides the generated trace id.
func WithTraceID(id string) QueryOption {
	return func(q *Query) {
		q.TraceID = id
	}
}

// WithMaxResults sets the maximum number of fused documents.
func WithMaxResults(n int) QueryOption {
	return func(q *Query) {
		q.MaxResults = n
	}
}

// WithTokenBudget sets the synthesizer token budget.
func WithTokenBudget(n int) QueryOption {
	return func(q *Query) {
		q.UserTokenBudget = n
	}
}

// NewQuery builds a validated Query. A random trace id is generated unless one
// is supplied.
func NewQuery(text string, opts ...QueryOption) (Query, error) {
	q := Query{
		Text:            strings.TrimSpace(text),
		TraceID:         uuid.NewString(),
		UserTokenBudget: DefaultTokenBudget,
		MaxResults:      DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(&q)
	}
	if err := ValidateQuery(q); err != nil {
		return Query{}, err
	}
	return q, nil
}

// ValidateQuery validates a Query according to domain rules.
//
// Validation rules:
//   - Text must contain at least one non-space character
//   - MaxResults must be within [1, MaxResultsLimit]
//   - UserTokenBudget must not be negative (0 leaves the limit to the model)
//
// NOT validated:
//   - TraceID (an empty id is tolerated and replaced by callers that need one)
func ValidateQuery(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyQueryText)
	}

	if q.MaxResults < 1 || q.MaxResults > MaxResultsLimit {
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidMaxResults, q.MaxResults)
	}

	if q.UserTokenBudget < 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidTokenBudget, q.UserTokenBudget)
	}

	return nil
}

// ValidateDocument validates a Document before indexing.
//
// Validation rules:
//   - ID must not be empty
//   - Content must not be empty
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	return nil
}

// NormalizeEntityName folds an entity name to the form used for identity.
func NormalizeEntityName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// EntityID returns the graph identity of a named entity.
func EntityID(name string) ID {
	return IDFromContent(NormalizeEntityName(name))
}
