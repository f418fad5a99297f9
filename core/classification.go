package core

// Category is the coarse intent of a query.
type Category string

const (
	CategoryGeneralFactual Category = "general_factual"
	CategoryCode           Category = "code"
	CategoryKnowledgeGraph Category = "knowledge_graph"
	CategoryAnalytical     Category = "analytical"
	CategoryComparative    Category = "comparative"
	CategoryProcedural     Category = "procedural"
	CategoryCreative       Category = "creative"
	CategoryOpinion        Category = "opinion"
)

// Categories lists every category in tie-break priority order, highest first.
var Categories = []Category{
	CategoryKnowledgeGraph,
	CategoryCode,
	CategoryComparative,
	CategoryAnalytical,
	CategoryProcedural,
	CategoryCreative,
	CategoryOpinion,
	CategoryGeneralFactual,
}

// Complexity estimates how much work a query needs.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ExecutionPattern selects how retrieval work is spread for a query.
type ExecutionPattern string

const (
	PatternPipeline      ExecutionPattern = "pipeline"
	PatternForkJoin      ExecutionPattern = "fork_join"
	PatternScatterGather ExecutionPattern = "scatter_gather"
)

// QueryClassification carries the routing hints derived from a query.
type QueryClassification struct {
	Category         Category
	Complexity       Complexity
	Confidence       float64
	SuggestedAgents  []string
	ExecutionPattern ExecutionPattern
	Priority         int
	Scores           map[Category]float64 // Confidence computed for every category
	SubQueries       []string             // Independent parts of a comparative query
}
