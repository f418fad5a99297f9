package verify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence. Entries are lowercase and include
// their inner dots.
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "vs": true, "cf": true,
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true, "sr": true,
	"jr": true, "vol": true, "fig": true, "approx": true,
}

// ambiguousAbbreviations are also ordinary sentence endings ("Main St.",
// "Acme Co.", "in Dec."). They end a sentence when the next word starts
// with an uppercase letter.
var ambiguousAbbreviations = map[string]bool{
	"etc": true, "al": true, "st": true, "mt": true, "ca": true,
	"inc": true, "ltd": true, "co": true, "corp": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true,
	"aug": true, "sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"u.s": true, "u.k": true, "a.m": true, "p.m": true,
}

// SplitSentences splits text into trimmed sentences. A sentence ends at '.',
// '!' or '?' (plus any closing quotes or brackets) followed by whitespace or
// the end of the text, and at blank lines. Periods inside numbers, after
// known abbreviations and after single-letter initials do not end a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, paragraph := range splitParagraphs(text) {
		runes := []rune(paragraph)
		for i := 0; i < len(runes); i++ {
			r := runes[i]
			current.WriteRune(r)
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			// Swallow repeated terminators and closing punctuation.
			for i+1 < len(runes) && strings.ContainsRune(".!?\"')]”’", runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			if r == '.' && !endsSentence(current.String(), nextRune(runes, i+1)) {
				continue
			}
			flush()
		}
		flush()
	}
	return sentences
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n\n")
}

// nextRune returns the first non-space rune at or after i, or 0.
func nextRune(runes []rune, i int) rune {
	for ; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return runes[i]
		}
	}
	return 0
}

// endsSentence reports whether a period closing s terminates the sentence.
// next is the first rune of the following text, 0 at the end.
func endsSentence(s string, next rune) bool {
	s = strings.TrimRight(s, "\"')]”’")
	s = strings.TrimSuffix(s, ".")
	word := s
	if i := strings.LastIndexFunc(s, unicode.IsSpace); i >= 0 {
		word = s[i+1:]
	}
	word = strings.TrimLeft(word, "\"'([“‘")
	if word == "" {
		return true
	}
	lower := strings.ToLower(word)
	if abbreviations[lower] {
		return false
	}
	if ambiguousAbbreviations[lower] {
		return next == 0 || unicode.IsUpper(next)
	}
	// Single-letter initial such as the "J." in "J. Robert".
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(word)
		return !unicode.IsUpper(r)
	}
	return true
}
