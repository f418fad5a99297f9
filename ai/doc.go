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

// Package ai provides abstractions for the AI services used by attest.
//
// The core packages depend on these interfaces rather than on concrete model
// clients, so the retrieval and verification logic can be exercised with
// deterministic test doubles.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - EntityExtractor: Finds named entities for the knowledge graph
//   - Synthesizer: Composes cited answers from documents or verified facts
//   - AIProvider: Aggregates the services above
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (Ollama, vLLM, OpenAI) via langchaingo
//   - ai/hugot: Local ONNX embeddings, no network required
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockSynthesizer) return CONCRETE types so tests can inject behavior
// and assert on call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	mockEmbed := mock.NewMockEmbedder()          // returns *mock.MockEmbedder
//
// # Citation Placeholders
//
// Synthesizers cite evidence inline as "[doc:<id>]". The cite package turns
// placeholders into numbered references after synthesis.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Why is the sky blue?")
//	answer, err := provider.Synthesizer().Compose(ctx, ai.SynthesisRequest{
//	    Query:     "Why is the sky blue?",
//	    Mode:      ai.ModeFallback,
//	    Documents: outcome.Results,
//	})
package ai
