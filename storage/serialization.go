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

package storage

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/poiesic/attest/core"
)

func marshal[T any](ser mus.Serializer[T], v T) []byte {
	buf := make([]byte, ser.Size(v))
	ser.Marshal(v, buf)
	return buf
}

func unmarshal[T any](ser mus.Serializer[T], data []byte) (T, error) {
	v, _, err := ser.Unmarshal(data)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return v, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	return marshal(DocumentMUS, *doc)
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, err := unmarshal(DocumentMUS, data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(entity *core.Entity) []byte {
	return marshal(EntityMUS, *entity)
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	entity, err := unmarshal(EntityMUS, data)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// MarshalEdge serializes an Edge to bytes.
func MarshalEdge(edge *core.Edge) []byte {
	return marshal(EdgeMUS, *edge)
}

// UnmarshalEdge deserializes an Edge from bytes.
func UnmarshalEdge(data []byte) (*core.Edge, error) {
	edge, err := unmarshal(EdgeMUS, data)
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

var resultsMUS = sliceMUS[core.EnhancedResult]{elem: EnhancedResultMUS}

// MarshalResults serializes a fused result list to bytes.
func MarshalResults(results []*core.EnhancedResult) []byte {
	vals := make([]core.EnhancedResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			vals = append(vals, *r)
		}
	}
	return marshal[[]core.EnhancedResult](resultsMUS, vals)
}

// UnmarshalResults deserializes a fused result list from bytes.
func UnmarshalResults(data []byte) ([]*core.EnhancedResult, error) {
	vals, err := unmarshal[[]core.EnhancedResult](resultsMUS, data)
	if err != nil {
		return nil, err
	}
	out := make([]*core.EnhancedResult, len(vals))
	for i := range vals {
		out[i] = &vals[i]
	}
	return out, nil
}

// MarshalAnswer serializes a cached answer to bytes.
func MarshalAnswer(answer CachedAnswer) []byte {
	return marshal(AnswerMUS, answer)
}

// UnmarshalAnswer deserializes a cached answer from bytes.
func UnmarshalAnswer(data []byte) (CachedAnswer, error) {
	return unmarshal(AnswerMUS, data)
}
