package retrieval

import (
	"slices"
	"strings"
	"unicode"

	"github.com/poiesic/attest/core"
)

const (
	snippetLength   = 240
	snippetLeadIn   = 80
	snippetEllipsis = "..."
)

// Snippet returns a window of content around the first occurrence of a
// content word of query. Without a match it returns the beginning of the
// content. Windows are widened or narrowed to word boundaries.
func Snippet(content, query string) string {
	runes := []rune(strings.Join(strings.Fields(content), " "))
	if len(runes) <= snippetLength {
		return string(runes)
	}

	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	start := 0
	if pos := firstTermIndex(lower, core.ContentWords(query)); pos > snippetLeadIn {
		start = pos - snippetLeadIn
	}
	end := min(len(runes), start+snippetLength)
	if end == len(runes) {
		start = max(0, end-snippetLength)
	}

	if start > 0 {
		if i := slices.Index(runes[start:end], ' '); i >= 0 && i < snippetLeadIn {
			start += i + 1
		}
	}
	if end < len(runes) {
		for i := end - 1; i > start; i-- {
			if runes[i] == ' ' {
				end = i
				break
			}
		}
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(snippetEllipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(snippetEllipsis)
	}
	return b.String()
}

// firstTermIndex returns the earliest position at which any term starts a
// word of text, or -1.
func firstTermIndex(text []rune, terms []string) int {
	best := -1
	for _, term := range terms {
		pattern := []rune(term)
		for i := 0; i+len(pattern) <= len(text); i++ {
			if best >= 0 && i >= best {
				break
			}
			if i > 0 && (unicode.IsLetter(text[i-1]) || unicode.IsDigit(text[i-1])) {
				continue
			}
			if slices.Equal(text[i:i+len(pattern)], pattern) {
				best = i
				break
			}
		}
	}
	return best
}
