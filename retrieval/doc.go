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

// Package retrieval implements hybrid retrieval: one query is sent to
// several source adapters in parallel and their hits are merged into a
// single ranked, deduplicated list.
//
// The engine normalizes each source's raw scores according to its kind,
// groups hits that refer to the same document, and combines per-source
// scores with a pluggable fusion strategy. The default strategy is a
// weighted average with a multi-source boost, so that documents found by
// several independent sources outrank documents found by only one.
//
// A source that fails or exceeds its deadline is recorded in the outcome
// and excluded from fusion; it never aborts the other sources. When no
// source returns anything the outcome is marked empty, which is a valid
// low-confidence result rather than an error.
package retrieval
