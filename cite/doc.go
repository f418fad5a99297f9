// Package cite turns the [doc:ID] placeholders a synthesizer emits into
// numbered citations.
package cite
