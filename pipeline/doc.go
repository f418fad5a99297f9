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

// Package pipeline answers queries through the staged flow
// classify → retrieve → verify → synthesize → cite.
//
// An Orchestrator runs the stages in that fixed order, each under its own
// time budget. Every stage ends in a core.StageResult recorded on the
// request's State; failures are caught at the stage boundary and the
// pipeline carries on in a degraded mode rather than aborting:
//
//   - An empty retrieval skips verification and caps confidence.
//   - A failed or skipped verification makes synthesis work from the raw
//     documents with reduced confidence.
//   - A failed synthesis falls back to an extractive answer built from the
//     top retrieved snippets.
//   - A failed citation step returns the uncited answer.
//
// Process always returns a core.FinalResponse whose Status and Warnings
// describe any degradation. Only an invalid query is reported as an error.
//
// Stage durations, request outcomes and source failures are reported to a
// Metrics sink, and each stage runs inside an OpenTelemetry span.
package pipeline
