// Package graph implements a knowledge-graph search source. Documents are
// reached through the entities a query names and the entities related to
// them.
package graph

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
	"github.com/poiesic/attest/storage"
)

const (
	DefaultID      = "graph"
	DefaultMaxHops = 2
	maxGramWords   = 4
	maxVisited     = 1000
	seedBonus      = 0.1
)

var (
	ErrGraphRequired     = errors.New("graph source requires a graph repository")
	ErrDocumentsRequired = errors.New("graph source requires a document repository")
)

// Source answers queries by walking the knowledge graph outward from the
// entities named in the query.
type Source struct {
	id        string
	graph     storage.GraphRepository
	docs      storage.DocumentRepository
	extractor ai.EntityExtractor
	maxHops   int
	logger    *slog.Logger
}

var _ sources.Adapter = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithID sets the source id. Defaults to "graph".
func WithID(id string) Option {
	return func(s *Source) { s.id = id }
}

// WithExtractor resolves query entities with an entity extractor instead
// of n-gram lookup.
func WithExtractor(extractor ai.EntityExtractor) Option {
	return func(s *Source) { s.extractor = extractor }
}

// WithMaxHops bounds the traversal depth.
func WithMaxHops(hops int) Option {
	return func(s *Source) { s.maxHops = hops }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// NewSource creates a graph source over the given repositories.
func NewSource(graph storage.GraphRepository, docs storage.DocumentRepository, opts ...Option) (*Source, error) {
	if graph == nil {
		return nil, ErrGraphRequired
	}
	if docs == nil {
		return nil, ErrDocumentsRequired
	}
	s := &Source{
		id:      DefaultID,
		graph:   graph,
		docs:    docs,
		maxHops: DefaultMaxHops,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxHops < 0 {
		s.maxHops = 0
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "graph-source", "source", s.id)
	return s, nil
}

func (s *Source) ID() string {
	return s.id
}

func (s *Source) Kind() sources.Kind {
	return sources.KindGraph
}

type docHit struct {
	id    string
	hops  int
	seeds int // Seed entities mentioning the document directly
}

// Search returns documents mentioning the query's entities or entities
// within MaxHops of them. A document mentioned by a seed entity scores 1,
// one hop out 0.5, two hops 0.33, plus a bonus for every additional seed
// entity mentioning it.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error) {
	if limit <= 0 {
		return []*core.RawResult{}, nil
	}

	seeds, err := s.seedEntities(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return []*core.RawResult{}, nil
	}

	distances, err := s.walk(ctx, seeds)
	if err != nil {
		return nil, err
	}

	hits := make(map[string]*docHit)
	for entityID, hops := range distances {
		docIDs, err := s.graph.GetMentions(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("mentions of %d: %w", entityID, err)
		}
		for _, docID := range docIDs {
			hit, ok := hits[docID]
			if !ok {
				hit = &docHit{id: docID, hops: hops}
				hits[docID] = hit
			}
			hit.hops = min(hit.hops, hops)
			if hops == 0 {
				hit.seeds++
			}
		}
	}

	ranked := make([]*docHit, 0, len(hits))
	for _, hit := range hits {
		ranked = append(ranked, hit)
	}
	slices.SortFunc(ranked, func(a, b *docHit) int {
		if c := cmp.Compare(hitScore(b), hitScore(a)); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	ids := make([]string, len(ranked))
	for i, hit := range ranked {
		ids[i] = hit.id
	}
	docs, err := s.docs.GetDocuments(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	byID := make(map[string]*core.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	results := make([]*core.RawResult, 0, len(ranked))
	for _, hit := range ranked {
		doc, ok := byID[hit.id]
		if !ok {
			continue
		}
		results = append(results, &core.RawResult{
			SourceID:   s.id,
			DocumentID: doc.ID,
			RawScore:   hitScore(hit),
			Title:      doc.Title,
			Content:    doc.Content,
			URL:        doc.URL,
			Timestamp:  doc.Timestamp,
			Metadata:   doc.Metadata,
		})
	}
	return results, nil
}

func hitScore(hit *docHit) float64 {
	score := 1 / float64(1+hit.hops)
	if hit.seeds > 1 {
		score += seedBonus * float64(hit.seeds-1)
	}
	return min(score, 1)
}

// seedEntities resolves the entities a query names. The extractor is
// preferred; n-gram lookup is used without one or when it finds nothing.
func (s *Source) seedEntities(ctx context.Context, query string) ([]*core.Entity, error) {
	if s.extractor != nil {
		extracted, err := s.extractor.ExtractEntities(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("entity extraction failed, using n-gram lookup", "err", err)
		} else if len(extracted) > 0 {
			names := make([]string, len(extracted))
			for i, e := range extracted {
				names[i] = e.Name
			}
			found, err := s.graph.FindEntitiesByName(ctx, names...)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				return found, nil
			}
		}
	}
	return s.graph.FindEntitiesByName(ctx, QueryGrams(query, maxGramWords)...)
}

// walk runs a breadth-first traversal from the seeds and returns the hop
// distance of every entity reached.
func (s *Source) walk(ctx context.Context, seeds []*core.Entity) (map[core.ID]int, error) {
	distances := make(map[core.ID]int, len(seeds))
	frontier := make([]core.ID, 0, len(seeds))
	for _, seed := range seeds {
		if _, ok := distances[seed.Id]; !ok {
			distances[seed.Id] = 0
			frontier = append(frontier, seed.Id)
		}
	}

	for hop := 1; hop <= s.maxHops && len(frontier) > 0; hop++ {
		var next []core.ID
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			edges, err := s.graph.Neighbors(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("neighbors of %d: %w", id, err)
			}
			for _, edge := range edges {
				other := edge.Other(id)
				if _, seen := distances[other]; seen {
					continue
				}
				if len(distances) >= maxVisited {
					return distances, nil
				}
				distances[other] = hop
				next = append(next, other)
			}
		}
		frontier = next
	}
	return distances, nil
}

// QueryGrams returns every run of 1 to maxWords consecutive words of text,
// longest first.
func QueryGrams(text string, maxWords int) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	var grams []string
	for n := min(maxWords, len(words)); n >= 1; n-- {
		for i := 0; i+n <= len(words); i++ {
			grams = append(grams, strings.Join(words[i:i+n], " "))
		}
	}
	return grams
}
