package cite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/attest/core"
)

var (
	placeholderPattern = regexp.MustCompile(`\[doc:\s*([^\]\s]+)\s*\]`)
	spaceBeforePunct   = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	repeatedSpace      = regexp.MustCompile(`[ \t]{2,}`)
	citationMarker     = regexp.MustCompile(`\[\d+\]`)
	repeatedCitation   = regexp.MustCompile(`\[\d+\](?:\s*\[\d+\])*`)
)

// Formatter rewrites an answer's citation placeholders against the documents
// it was written from.
type Formatter interface {
	Format(answer string, sources []*core.EnhancedResult) (string, []core.Citation, error)
}

// Placeholder returns the placeholder citing documentID.
func Placeholder(documentID string) string {
	return "[doc:" + documentID + "]"
}

// CitedIDs returns the distinct document ids cited by text in order of first
// appearance.
func CitedIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// StripPlaceholders removes every citation placeholder from text.
func StripPlaceholders(text string) string {
	text = placeholderPattern.ReplaceAllString(text, "")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = repeatedSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NumberedFormatter numbers cited documents [1], [2], ... in order of first
// appearance. With References set, a source list is appended to the answer.
type NumberedFormatter struct {
	References bool
}

var _ Formatter = NumberedFormatter{}

// Format replaces placeholders with numbers. A placeholder naming a document
// missing from sources fails the whole format with ErrUnknownCitation.
func (f NumberedFormatter) Format(answer string, sources []*core.EnhancedResult) (string, []core.Citation, error) {
	byID := make(map[string]*core.EnhancedResult, len(sources))
	for _, s := range sources {
		if s != nil {
			byID[s.DocumentID] = s
		}
	}

	ids := CitedIDs(answer)
	index := make(map[string]int, len(ids))
	citations := make([]core.Citation, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownCitation, id)
		}
		index[id] = len(citations) + 1
		citations = append(citations, core.Citation{
			Index:       len(citations) + 1,
			DocumentID:  id,
			Title:       doc.Title,
			URL:         doc.URL,
			SourceTypes: append([]string(nil), doc.SourceTypes...),
		})
	}

	text := placeholderPattern.ReplaceAllStringFunc(answer, func(m string) string {
		id := placeholderPattern.FindStringSubmatch(m)[1]
		return fmt.Sprintf("[%d]", index[id])
	})
	text = repeatedCitation.ReplaceAllStringFunc(text, dedupeCitationRun)
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(repeatedSpace.ReplaceAllString(text, " "))

	if f.References && len(citations) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n\nSources:")
		for _, c := range citations {
			fmt.Fprintf(&b, "\n[%d] %s", c.Index, referenceLabel(c))
		}
		text = b.String()
	}
	return text, citations, nil
}

// dedupeCitationRun collapses a run such as "[1] [2][1]" to "[1][2]".
func dedupeCitationRun(run string) string {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, m := range citationMarker.FindAllString(run, -1) {
		if !seen[m] {
			seen[m] = true
			b.WriteString(m)
		}
	}
	return b.String()
}

func referenceLabel(c core.Citation) string {
	label := c.Title
	if label == "" {
		label = c.DocumentID
	}
	if c.URL != "" {
		label += " (" + c.URL + ")"
	}
	return label
}
