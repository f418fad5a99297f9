package pipeline

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/retrieval"
	"github.com/poiesic/attest/storage"
)

const (
	retrievalKeyPrefix = "retrieval:"
	answerKeyPrefix    = "answer:"
)

func cacheKey(prefix string, parts ...string) string {
	h, _ := blake2b.New(16, nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

func retrievalKey(q core.Query, sourceIDs []string) string {
	return cacheKey(retrievalKeyPrefix,
		strings.ToLower(strings.Join(strings.Fields(q.Text), " ")),
		strconv.Itoa(q.MaxResults),
		strings.Join(sourceIDs, ","))
}

func answerKey(q core.Query, docs []*core.EnhancedResult) string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocumentID
	}
	return cacheKey(answerKeyPrefix,
		strings.ToLower(strings.Join(strings.Fields(q.Text), " ")),
		strconv.Itoa(q.UserTokenBudget),
		strings.Join(ids, ","))
}

func (o *Orchestrator) cacheEnabled() bool {
	return o.cache != nil && o.config.CacheTTL > 0
}

func (o *Orchestrator) cacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Budgets.Cache)
	defer cancel()
	return o.cache.Get(ctx, key)
}

func (o *Orchestrator) cacheSet(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, o.config.Budgets.Cache)
	defer cancel()
	return o.cache.Set(ctx, key, value, o.config.CacheTTL)
}

// cachedRetrieval returns a cached outcome for the query and sources.
// Cache failures read as misses.
func (o *Orchestrator) cachedRetrieval(ctx context.Context, q core.Query, sourceIDs []string) (*core.RetrievalOutcome, bool) {
	if !o.cacheEnabled() {
		return nil, false
	}
	data, ok, err := o.cacheGet(ctx, retrievalKey(q, sourceIDs))
	if err != nil {
		o.logger.Warn("retrieval cache read failed", "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	results, err := storage.UnmarshalResults(data)
	if err != nil {
		o.logger.Warn("discarding unreadable cached retrieval", "err", err)
		return nil, false
	}
	return &core.RetrievalOutcome{
		Query:           q,
		Results:         results,
		ConfidenceScore: retrieval.Confidence(results),
		Empty:           len(results) == 0,
	}, true
}

// storeRetrieval caches outcomes that found documents with every source
// answering.
func (o *Orchestrator) storeRetrieval(ctx context.Context, q core.Query, sourceIDs []string, outcome *core.RetrievalOutcome) {
	if !o.cacheEnabled() || outcome.Empty || len(outcome.SourceErrors) > 0 {
		return
	}
	err := o.cacheSet(ctx, retrievalKey(q, sourceIDs), storage.MarshalResults(outcome.Results))
	if err != nil {
		o.logger.Warn("retrieval cache write failed", "err", err)
	}
}

func (o *Orchestrator) cachedAnswer(ctx context.Context, q core.Query, docs []*core.EnhancedResult) (storage.CachedAnswer, bool) {
	if !o.cacheEnabled() || len(docs) == 0 {
		return storage.CachedAnswer{}, false
	}
	data, ok, err := o.cacheGet(ctx, answerKey(q, docs))
	if err != nil {
		o.logger.Warn("answer cache read failed", "err", err)
		return storage.CachedAnswer{}, false
	}
	if !ok {
		return storage.CachedAnswer{}, false
	}
	answer, err := storage.UnmarshalAnswer(data)
	if err != nil {
		o.logger.Warn("discarding unreadable cached answer", "err", err)
		return storage.CachedAnswer{}, false
	}
	return answer, true
}

func (o *Orchestrator) storeAnswer(ctx context.Context, q core.Query, docs []*core.EnhancedResult, answer storage.CachedAnswer) {
	if !o.cacheEnabled() {
		return
	}
	if err := o.cacheSet(ctx, answerKey(q, docs), storage.MarshalAnswer(answer)); err != nil {
		o.logger.Warn("answer cache write failed", "err", err)
	}
}
