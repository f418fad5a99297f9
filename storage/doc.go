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

// Package storage provides the storage abstraction layer for attest.
//
// This package defines repository interfaces that decouple the knowledge
// graph, the canonical document store and the response cache from their
// backends.
//
// # Architecture
//
//   - DocumentRepository: canonical copies of indexed documents
//   - GraphRepository: entities, edges and entity mentions
//   - Cache: opaque byte values with a time to live
//
// Values are encoded with mus-go serializers defined in this package and
// exposed through MarshalDocument, MarshalEntity, MarshalEdge,
// MarshalResults and MarshalAnswer with their Unmarshal counterparts.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	docs := badger.NewDocumentRepository(backend)
//	graph := badger.NewGraphRepository(backend)
//	cache := badger.NewCache(backend)
//
// Use in tests with in-memory storage:
//
//	docs, graph, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
