package core

import (
	"strings"
	"unicode"
)

// Stop words ignored when comparing texts by vocabulary
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "in": true,
	"that": true, "have": true, "has": true, "it": true, "its": true, "for": true,
	"not": true, "on": true, "with": true, "as": true, "you": true, "do": true,
	"does": true, "at": true, "this": true, "but": true, "by": true, "from": true,
	"or": true, "what": true, "which": true, "who": true, "how": true, "why": true,
	"when": true, "where": true, "there": true, "their": true, "they": true,
	"i": true, "we": true, "he": true, "she": true, "his": true, "her": true,
	"than": true, "then": true, "so": true, "if": true, "into": true, "about": true,
	"can": true, "will": true, "would": true, "should": true, "did": true,
	"been": true, "being": true, "these": true, "those": true, "me": true,
	"my": true, "our": true, "your": true, "due": true,
}

// IsStopWord reports whether a lowercase word carries no content.
func IsStopWord(word string) bool {
	return stopWords[word]
}

// Words splits text into lowercase words of letters and digits.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContentWords splits text into lowercase words and removes stop words.
func ContentWords(text string) []string {
	words := Words(text)
	filtered := words[:0]
	for _, w := range words {
		if !stopWords[w] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// ContentWordSet returns the distinct content words of text.
func ContentWordSet(text string) map[string]struct{} {
	words := ContentWords(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
