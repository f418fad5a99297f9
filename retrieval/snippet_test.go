package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet_ShortContentUnchanged(t *testing.T) {
	assert.Equal(t, "Radium glows faintly.", Snippet("Radium   glows\nfaintly.", "radium"))
	assert.Equal(t, "", Snippet("", "radium"))
}

func TestSnippet_WindowAroundMatch(t *testing.T) {
	filler := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	content := filler + "Marie Curie discovered polonium and radium in 1898. " + filler

	snippet := Snippet(content, "who discovered polonium")

	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Contains(t, snippet, "discovered polonium")
	assert.LessOrEqual(t, utf8.RuneCountInString(snippet), snippetLength+2*len(snippetEllipsis))
}

func TestSnippet_NoMatchStartsAtBeginning(t *testing.T) {
	content := strings.Repeat("alpha beta gamma ", 40)

	snippet := Snippet(content, "zeta")

	assert.True(t, strings.HasPrefix(snippet, "alpha beta"))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	// Cut on a word boundary.
	body := strings.TrimSuffix(snippet, "...")
	for _, w := range strings.Fields(body) {
		assert.Contains(t, []string{"alpha", "beta", "gamma"}, w)
	}
}

func TestSnippet_MatchNearEnd(t *testing.T) {
	content := strings.Repeat("filler words here ", 30) + "the radium ending"

	snippet := Snippet(content, "radium")

	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "the radium ending"))
}

func TestSnippet_MatchesWordStartsOnly(t *testing.T) {
	text := []rune("preradium radium")
	assert.Equal(t, 10, firstTermIndex(text, []string{"radium"}))
	assert.Equal(t, -1, firstTermIndex(text, []string{"polonium"}))
}
