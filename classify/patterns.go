package classify

import (
	"regexp"

	"github.com/poiesic/attest/core"
)

// patternTable lists the expressions recognising each category. Patterns are
// matched against the lowercased query.
var patternTable = map[core.Category][]string{
	core.CategoryKnowledgeGraph: {
		`\brelationship\s+between\b`,
		`\b(?:relationship|relation|connection|link)s?\s+between\s+.+\s+and\b`,
		`\bhow\s+(?:is|are|was|were)\s+.+\s+(?:related|connected|linked)\b`,
		`\b(?:connected|linked|related)\s+to\b`,
		`\b(?:who|what)\s+(?:founded|invented|discovered|created|wrote|married|influenced)\b`,
		`\b(?:associated|affiliated)\s+with\b`,
		`\b(?:member|subsidiary|parent\s+company)\s+of\b`,
	},
	core.CategoryCode: {
		`\b(?:python|golang|java|javascript|typescript|rust|ruby|kotlin|swift|c\+\+|haskell)\b`,
		`\b(?:function|method|class|struct|interface|variable|goroutine)s?\b`,
		`\b(?:compile|compiler|runtime|syntax|stack\s*trace|segfault|exception)\b`,
		`\b(?:api|sdk|library|framework|package|dependency)\b`,
		`\b(?:bug|debug|traceback|error\s+message)\b`,
		`\b(?:git|docker|kubernetes|npm|pip|cargo)\b`,
		"```|\\b[a-z_][a-z0-9_]*\\(\\)",
		`\b(?:regex|sql|json|yaml|http)\b`,
	},
	core.CategoryComparative: {
		`\bcompar(?:e|ed|es|ing|ison)\b`,
		`\bvs\.?(?:\s|$)|\bversus\b`,
		`\b(?:better|worse|faster|slower)\s+than\b`,
		`\bdifferences?\s+between\b`,
		`\bpros\s+and\s+cons\b|\badvantages?\s+(?:and|or)\s+disadvantages?\b`,
		`\bwhich\s+is\s+(?:better|faster|cheaper|larger|more|less)\b`,
		`\bsimilarit(?:y|ies)\s+between\b`,
	},
	core.CategoryAnalytical: {
		`\b(?:analy[sz]e|analysis)\b`,
		`\b(?:why|how\s+come)\b`,
		`\b(?:explain|evaluate|assess|examine)\b`,
		`\b(?:impact|effect|consequence|implication)s?\s+of\b`,
		`\b(?:cause|reason)s?\s+(?:of|for|behind)\b`,
		`\b(?:trend|pattern|correlation)s?\b`,
	},
	core.CategoryProcedural: {
		`^how\s+(?:do|can|should|would)\s+(?:i|you|we|one)\b`,
		`\bhow\s+to\b`,
		`\bsteps?\s+(?:to|for)\b`,
		`\b(?:guide|tutorial|instructions?|walkthrough)\b`,
		`\b(?:install|configure|set\s*up|deploy)\b`,
		`\bprocess\s+(?:of|for)\b`,
	},
	core.CategoryCreative: {
		`\b(?:write|compose|draft)\s+(?:a|an|me)\b`,
		`\b(?:poem|story|song|haiku|essay|slogan)s?\b`,
		`\b(?:imagine|invent|brainstorm)\b`,
		`\bcreative\b`,
		`\b(?:generate|come\s+up\s+with)\s+(?:some\s+)?ideas?\b`,
	},
	core.CategoryOpinion: {
		`\b(?:should\s+i|would\s+you)\b`,
		`\bdo\s+you\s+(?:think|believe|like|prefer)\b|\byour\s+(?:opinion|view|thoughts?)\b`,
		`\b(?:best|worst|favorite|favourite)\b`,
		`\b(?:recommend|recommendation|suggest)\b`,
		`\b(?:worth\s+it|overrated|underrated)\b`,
		`\bis\s+it\s+(?:good|bad|worth|wise)\b`,
	},
	core.CategoryGeneralFactual: {
		`^(?:what|who|when|where|which)\b`,
		`\bdefin(?:e|ition)\b`,
		`\bhow\s+(?:many|much|old|tall|far|long|big)\b`,
		`\bwhen\s+(?:did|was|were|is)\b`,
		`\bwhere\s+(?:is|are|was|were|did)\b`,
		`\bmeaning\s+of\b`,
		`\bfacts?\s+about\b`,
	},
}

// multiPartKeywords raise the complexity estimate of a query.
var multiPartKeywords = regexp.MustCompile(`\b(?:compare|comparison|analy[sz]e|analysis|explain|evaluate|impact|relationship|differences?|pros\s+and\s+cons|steps?|versus|vs|why|implications?|trade-?offs?)\b`)

// clauseSeparators split a query into clauses for the complexity estimate.
var clauseSeparators = regexp.MustCompile(`[,;:]|\s(?:and|but|or|while|whereas|because|although|then|if)\s`)

// comparisonSplitters extract the two sides of a comparative query.
var comparisonSplitters = []*regexp.Regexp{
	regexp.MustCompile(`\bbetween\s+(.+?)\s+and\s+(.+)$`),
	regexp.MustCompile(`\bcompare\s+(.+?)\s+(?:and|with|to|against)\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s+(?:vs\.?|versus|compared\s+(?:to|with))\s+(.+)$`),
	regexp.MustCompile(`\bis\s+(.+?)\s+(?:better|worse|faster|slower)\s+than\s+(.+)$`),
}

// leadingNoise is stripped from the front of extracted comparison sides.
var leadingNoise = regexp.MustCompile(`^(?:what(?:'s|\s+is|\s+are)?|which\s+is|is|are|the|differences?|similarities?)\s+`)

type rule struct {
	category core.Category
	patterns []*regexp.Regexp
}

func compileRules() []rule {
	rules := make([]rule, 0, len(core.Categories))
	for _, category := range core.Categories {
		exprs := patternTable[category]
		r := rule{category: category, patterns: make([]*regexp.Regexp, 0, len(exprs))}
		for _, expr := range exprs {
			r.patterns = append(r.patterns, regexp.MustCompile(expr))
		}
		rules = append(rules, r)
	}
	return rules
}
