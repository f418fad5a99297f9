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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidQuery indicates a Query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyQueryText indicates the query text is empty or whitespace.
	ErrEmptyQueryText = errors.New("query text cannot be empty")

	// ErrInvalidMaxResults indicates MaxResults is outside the accepted range.
	ErrInvalidMaxResults = errors.New("max results out of range")

	// ErrInvalidTokenBudget indicates a negative token budget.
	ErrInvalidTokenBudget = errors.New("token budget cannot be negative")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyDocumentID indicates the document ID is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrSourceTimeout indicates a source did not answer within its deadline.
	ErrSourceTimeout = errors.New("source timed out")
)

// SourceError records a source adapter that errored or timed out during
// retrieval. The failing source is excluded from fusion.
type SourceError struct {
	SourceID string
	TimedOut bool
	Err      error
}

func (e *SourceError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("source %s unavailable: timed out", e.SourceID)
	}
	return fmt.Sprintf("source %s unavailable: %v", e.SourceID, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// StageError is a failure caught at a pipeline stage boundary.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
