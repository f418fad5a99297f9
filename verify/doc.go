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

// Package verify checks the factual sentences of an answer against the
// evidence documents it was written from.
//
// Sentences are split with an abbreviation-aware splitter and classified as
// factual or opinion with lexical markers. Each factual sentence is embedded
// and compared by cosine similarity against sentence-packed chunks of every
// evidence document. A sentence whose best similarity reaches the threshold
// is verified; otherwise it is reported as unsupported together with its
// closest document.
//
// When no embedder is configured, or embedding fails, the Verifier falls back
// to content-word containment: the share of the sentence's content words that
// appear in a chunk. The fallback uses its own, higher threshold and the
// outcome records core.MethodKeywordFallback.
//
// Basic usage:
//
//	v, err := verify.NewVerifier(verify.WithEmbedder(provider.Embedder()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outcome, err := v.Verify(ctx, answer, retrieved.Results)
package verify
