package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

const (
	// PredicateMentionedWith links entities mentioned by the same document.
	PredicateMentionedWith = "mentioned_with"

	// PredicateRelatedTo labels declared relations without a predicate.
	PredicateRelatedTo = "related_to"

	// maxCoMentioned bounds the entities per document that are linked
	// pairwise.
	maxCoMentioned = 12
)

// GraphBuilder is a Sink that stores documents and grows the knowledge
// graph from them: every entity a document declares or an extractor finds
// is recorded with a mention of the document, co-mentioned entities are
// linked and declared relations become edges.
type GraphBuilder struct {
	docs          storage.DocumentRepository
	graph         storage.GraphRepository
	extractor     ai.EntityExtractor
	minImportance int
	logger        *slog.Logger
}

var _ Sink = (*GraphBuilder)(nil)

// GraphOption configures a GraphBuilder.
type GraphOption func(*GraphBuilder)

// WithExtractor adds entities found by an extractor to the declared ones.
func WithExtractor(extractor ai.EntityExtractor) GraphOption {
	return func(g *GraphBuilder) { g.extractor = extractor }
}

// WithMinImportance drops extracted entities less important than min.
func WithMinImportance(min int) GraphOption {
	return func(g *GraphBuilder) { g.minImportance = min }
}

// WithGraphLogger sets the logger.
func WithGraphLogger(logger *slog.Logger) GraphOption {
	return func(g *GraphBuilder) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGraphBuilder creates a GraphBuilder over the given repositories.
func NewGraphBuilder(docs storage.DocumentRepository, graph storage.GraphRepository, opts ...GraphOption) (*GraphBuilder, error) {
	if docs == nil {
		return nil, ErrDocumentsRequired
	}
	if graph == nil {
		return nil, ErrGraphRequired
	}
	g := &GraphBuilder{docs: docs, graph: graph, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("sink", g.Name())
	return g, nil
}

func (g *GraphBuilder) Name() string {
	return "graph"
}

// Index stores docs, then records their entities, mentions and edges.
func (g *GraphBuilder) Index(ctx context.Context, docs []*core.Document) error {
	if err := g.docs.AddDocuments(ctx, docs...); err != nil {
		return fmt.Errorf("store documents: %w", err)
	}
	for _, doc := range docs {
		if err := g.indexDocument(ctx, doc); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (g *GraphBuilder) indexDocument(ctx context.Context, doc *core.Document) error {
	entities, err := g.entities(ctx, doc)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	if _, err := g.graph.UpsertEntities(ctx, entities...); err != nil {
		return fmt.Errorf("upsert entities: %w", err)
	}
	for _, e := range entities {
		if err := g.graph.AddMentions(ctx, core.EntityID(e.Name), doc.ID); err != nil {
			return fmt.Errorf("add mentions: %w", err)
		}
	}

	var edges []*core.Edge
	linked := entities[:min(len(entities), maxCoMentioned)]
	for i, a := range linked {
		for _, b := range linked[i+1:] {
			edges = append(edges, &core.Edge{
				From:       core.EntityID(a.Name),
				To:         core.EntityID(b.Name),
				Predicate:  PredicateMentionedWith,
				DocumentID: doc.ID,
			})
		}
	}
	for _, rel := range doc.Relations {
		predicate := rel.Predicate
		if predicate == "" {
			predicate = PredicateRelatedTo
		}
		edges = append(edges, &core.Edge{
			From:      core.EntityID(rel.Subject),
			To:        core.EntityID(rel.Object),
			Predicate: predicate,
		})
	}
	if len(edges) == 0 {
		return nil
	}
	if err := g.graph.AddEdges(ctx, edges...); err != nil {
		return fmt.Errorf("add edges: %w", err)
	}

	g.logger.Debug("document graphed", "document_id", doc.ID, "entities", len(entities), "edges", len(edges))
	return nil
}

// entities collects the document's declared, related and extracted
// entities, deduplicated by normalized name in that order.
func (g *GraphBuilder) entities(ctx context.Context, doc *core.Document) ([]*core.Entity, error) {
	var out []*core.Entity
	seen := make(map[string]bool)
	add := func(name, typ string) {
		norm := core.NormalizeEntityName(name)
		if norm == "" || seen[norm] {
			return
		}
		seen[norm] = true
		out = append(out, &core.Entity{Name: name, Type: typ})
	}

	for _, name := range doc.Entities {
		add(name, "")
	}
	for _, rel := range doc.Relations {
		add(rel.Subject, "")
		add(rel.Object, "")
	}

	if g.extractor != nil {
		extracted, err := g.extractor.ExtractEntities(ctx, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("extract entities: %w", err)
		}
		for _, e := range extracted {
			if e.Importance < g.minImportance {
				continue
			}
			add(e.Name, e.Type)
		}
	}
	return out, nil
}
