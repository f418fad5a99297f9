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

// Package sources defines the uniform search contract every retrieval
// backend implements, and the registry the retrieval engine resolves
// backends from.
//
// Backends live in sub-packages:
//
//   - vector: embedded chromem-go collection
//   - keyword: SQLite FTS5 full-text index
//   - graph: knowledge graph stored in BadgerDB
//   - encyclopedia: MediaWiki search API
//   - postgres: pgvector similarity search
//   - mock: scripted adapter for tests
//
// Adapters are registered once at startup and looked up by id afterwards.
package sources
