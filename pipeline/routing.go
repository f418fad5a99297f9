package pipeline

import (
	"github.com/poiesic/attest/classify"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
)

// agentKinds maps classifier agent names to source kinds.
var agentKinds = map[string]sources.Kind{
	classify.AgentVectorSearch:   sources.KindVector,
	classify.AgentKeywordSearch:  sources.KindLexical,
	classify.AgentKnowledgeGraph: sources.KindGraph,
	classify.AgentEncyclopedia:   sources.KindEncyclopedic,
}

// selectSources resolves a classification to registered source ids.
// Scatter-gather and the "all" agent select every source. When nothing
// matches, defaults are used, or every source when defaults are empty.
func selectSources(c core.QueryClassification, registry *sources.Registry, defaults []string) []string {
	if c.ExecutionPattern == core.PatternScatterGather {
		return registry.IDs()
	}
	var kinds []sources.Kind
	for _, agent := range c.SuggestedAgents {
		if agent == classify.AgentAll {
			return registry.IDs()
		}
		if kind, ok := agentKinds[agent]; ok {
			kinds = append(kinds, kind)
		}
	}
	if ids := registry.ByKind(kinds...); len(ids) > 0 {
		return ids
	}
	if len(defaults) > 0 {
		return append([]string(nil), defaults...)
	}
	return registry.IDs()
}
