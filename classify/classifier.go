package classify

import (
	"strings"

	"github.com/poiesic/attest/core"
)

// MinConfidence is the floor a category must exceed to be chosen.
const MinConfidence = 0.05

// Classifier derives routing hints from query text.
type Classifier struct {
	rules []rule
}

// New returns a Classifier using the built-in pattern table.
func New() *Classifier {
	return &Classifier{rules: compileRules()}
}

var defaultClassifier = New()

// Classify classifies text with the built-in pattern table.
func Classify(text string) core.QueryClassification {
	return defaultClassifier.Classify(text)
}

// Default returns the classification given to text that matches nothing.
func Default() core.QueryClassification {
	agents, pattern, priority := routeFor(core.CategoryGeneralFactual, core.ComplexitySimple)
	return core.QueryClassification{
		Category:         core.CategoryGeneralFactual,
		Complexity:       core.ComplexitySimple,
		SuggestedAgents:  agents,
		ExecutionPattern: pattern,
		Priority:         priority,
	}
}

// PatternCount returns the number of patterns defined for category.
func (c *Classifier) PatternCount(category core.Category) int {
	for _, r := range c.rules {
		if r.category == category {
			return len(r.patterns)
		}
	}
	return 0
}

// Classify never fails. Unmatched text yields general_factual with
// confidence 0.
func (c *Classifier) Classify(text string) core.QueryClassification {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))

	scores := make(map[core.Category]float64, len(c.rules))
	best := core.CategoryGeneralFactual
	bestScore := 0.0
	// Rules are in priority order, so only a strictly higher score replaces
	// the current best.
	for _, r := range c.rules {
		score := r.confidence(normalized)
		scores[r.category] = score
		if score > bestScore {
			best = r.category
			bestScore = score
		}
	}

	if bestScore <= MinConfidence {
		best = core.CategoryGeneralFactual
		bestScore = 0
	}

	complexity := estimateComplexity(normalized)
	agents, pattern, priority := routeFor(best, complexity)

	result := core.QueryClassification{
		Category:         best,
		Complexity:       complexity,
		Confidence:       bestScore,
		SuggestedAgents:  agents,
		ExecutionPattern: pattern,
		Priority:         priority,
		Scores:           scores,
	}
	if pattern == core.PatternForkJoin {
		result.SubQueries = splitComparison(normalized)
	}
	return result
}

func (r rule) confidence(text string) float64 {
	if len(r.patterns) == 0 || text == "" {
		return 0
	}
	matched := 0
	for _, p := range r.patterns {
		if p.MatchString(text) {
			matched++
		}
	}
	return float64(matched) / float64(len(r.patterns))
}

// estimateComplexity scores length, clause count and multi-part keywords.
func estimateComplexity(text string) core.Complexity {
	words := len(strings.Fields(text))
	if words == 0 {
		return core.ComplexitySimple
	}
	clauses := 1 + len(clauseSeparators.FindAllStringIndex(text, -1))
	keywords := len(multiPartKeywords.FindAllStringIndex(text, -1))

	score := 0
	if words > 12 {
		score++
	}
	if words > 25 {
		score++
	}
	if clauses >= 3 {
		score++
	}
	if clauses >= 5 {
		score++
	}
	if keywords >= 1 {
		score++
	}
	if keywords >= 2 {
		score++
	}
	if strings.Count(text, "?") > 1 {
		score++
	}

	switch {
	case score >= 4:
		return core.ComplexityComplex
	case score >= 2:
		return core.ComplexityModerate
	default:
		return core.ComplexitySimple
	}
}

// splitComparison returns the two sides of a comparative query, or nil when
// the query does not name two sides.
func splitComparison(text string) []string {
	text = strings.TrimRight(text, "?.! ")
	for _, re := range comparisonSplitters {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		a := cleanSide(m[1])
		b := cleanSide(m[2])
		if a == "" || b == "" || a == b {
			continue
		}
		return []string{a, b}
	}
	return nil
}

func cleanSide(s string) string {
	if idx := strings.IndexAny(s, ",;:"); idx > 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	for {
		trimmed := leadingNoise.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return strings.Trim(s, " ,;:?!.\"'")
}
