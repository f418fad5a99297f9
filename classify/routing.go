package classify

import "github.com/poiesic/attest/core"

// Agent names understood by the orchestrator when picking sources.
const (
	AgentVectorSearch   = "vector_search"
	AgentKeywordSearch  = "keyword_search"
	AgentKnowledgeGraph = "knowledge_graph"
	AgentEncyclopedia   = "encyclopedia"
	// AgentAll stands for every registered source.
	AgentAll = "all"
)

type route struct {
	agents   []string
	pattern  core.ExecutionPattern
	priority int
}

var routes = map[core.Category]route{
	core.CategoryGeneralFactual: {[]string{AgentKeywordSearch, AgentVectorSearch, AgentEncyclopedia}, core.PatternPipeline, 5},
	core.CategoryCode:           {[]string{AgentKeywordSearch, AgentVectorSearch}, core.PatternPipeline, 6},
	core.CategoryKnowledgeGraph: {[]string{AgentKnowledgeGraph, AgentVectorSearch, AgentKeywordSearch}, core.PatternPipeline, 7},
	core.CategoryAnalytical:     {[]string{AgentAll}, core.PatternScatterGather, 8},
	core.CategoryComparative:    {[]string{AgentVectorSearch, AgentKeywordSearch, AgentKnowledgeGraph}, core.PatternForkJoin, 7},
	core.CategoryProcedural:     {[]string{AgentKeywordSearch, AgentVectorSearch}, core.PatternPipeline, 5},
	core.CategoryCreative:       {[]string{AgentVectorSearch}, core.PatternPipeline, 3},
	core.CategoryOpinion:        {[]string{AgentVectorSearch, AgentEncyclopedia}, core.PatternPipeline, 4},
}

func routeFor(category core.Category, complexity core.Complexity) ([]string, core.ExecutionPattern, int) {
	r, ok := routes[category]
	if !ok {
		r = routes[core.CategoryGeneralFactual]
	}

	priority := r.priority
	switch complexity {
	case core.ComplexityComplex:
		priority += 2
	case core.ComplexitySimple:
		priority--
	}
	priority = max(1, min(10, priority))

	agents := make([]string, len(r.agents))
	copy(agents, r.agents)
	return agents, r.pattern, priority
}
