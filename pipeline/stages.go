package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/cite"
	"github.com/poiesic/attest/classify"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/retrieval"
	"github.com/poiesic/attest/storage"
)

// Skip reasons and warnings surfaced to callers.
const (
	skipNoEvidence = "no evidence"
	skipNoAnswer   = "no answer"

	warnNoDocuments = "No relevant documents found for this query."
)

// CitedAnswer is the output of the cite stage.
type CitedAnswer struct {
	Text      string
	Citations []core.Citation
}

func (o *Orchestrator) classify(ctx context.Context, st *State) {
	text := st.Query.Text
	result := o.runStage(ctx, st, core.StageClassify, o.config.Budgets.Classify, func(context.Context) *core.StageResult {
		c := o.classifier.Classify(text)
		return &core.StageResult{Success: true, Data: c, Confidence: c.Confidence}
	})
	if result.Success {
		st.Classification = result.Data.(core.QueryClassification)
		return
	}
	st.Classification = classify.Default()
	st.warn(fmt.Sprintf("Query classification failed (%v); using default routing.", result.Err))
}

func (o *Orchestrator) retrieve(ctx context.Context, st *State) {
	q := st.Query
	classification := st.Classification
	ids := selectSources(classification, o.retriever.Registry(), o.config.DefaultSources)
	st.Sources = ids

	cached, hit := o.cachedRetrieval(ctx, q, ids)
	result := o.runStage(ctx, st, core.StageRetrieve, o.config.Budgets.Retrieve, func(ctx context.Context) *core.StageResult {
		if hit {
			return &core.StageResult{Success: true, Data: cached, Confidence: cached.ConfidenceScore}
		}
		req := retrieval.Request{Query: q, SourceIDs: ids}
		var outcome *core.RetrievalOutcome
		var err error
		if classification.ExecutionPattern == core.PatternForkJoin && len(classification.SubQueries) > 1 {
			outcome, err = o.retriever.RetrieveEach(ctx, req, classification.SubQueries)
		} else {
			outcome, err = o.retriever.Retrieve(ctx, req)
		}
		if err != nil {
			return failed(err)
		}
		return &core.StageResult{Success: true, Data: outcome, Confidence: outcome.ConfidenceScore}
	})

	if !result.Success {
		st.EmptyRetrieval = true
		st.warn(fmt.Sprintf("Retrieval failed: %v.", result.Err))
		st.warn(warnNoDocuments)
		return
	}

	outcome := result.Data.(*core.RetrievalOutcome)
	st.Retrieval = outcome
	if hit {
		st.CacheHits++
	}
	for _, serr := range outcome.SourceErrors {
		o.metrics.IncSourceError(serr.SourceID)
		st.warn(fmt.Sprintf("Source %s was unavailable and was excluded.", serr.SourceID))
	}
	if outcome.Empty {
		st.EmptyRetrieval = true
		st.warn(warnNoDocuments)
		return
	}
	if !hit {
		o.storeRetrieval(ctx, q, ids, outcome)
	}
}

func (o *Orchestrator) verify(ctx context.Context, st *State) {
	if st.EmptyRetrieval {
		o.skipStage(ctx, st, core.StageVerify, skipNoEvidence)
		st.warn("Verification skipped: there was no evidence to check the answer against.")
		return
	}

	q := st.Query
	docs := st.documents()
	if answer, ok := o.cachedAnswer(ctx, q, docs); ok {
		o.runStage(ctx, st, core.StageVerify, o.config.Budgets.Verify, func(context.Context) *core.StageResult {
			return &core.StageResult{Success: true, Confidence: answer.Confidence}
		})
		st.Synthesis = &ai.Synthesis{Text: answer.Text, Confidence: answer.Confidence, Mode: ai.ModeVerified}
		st.CacheHits++
		return
	}

	budgets := o.config.Budgets
	result := o.runStage(ctx, st, core.StageVerify, budgets.Draft+budgets.Verify, func(ctx context.Context) *core.StageResult {
		draft, err := o.composeDraft(ctx, q, docs)
		if err != nil {
			return failed(fmt.Errorf("compose draft: %w", err))
		}
		verifyCtx, cancel := context.WithTimeout(ctx, budgets.Verify)
		defer cancel()
		outcome, err := o.verifier.Verify(verifyCtx, cite.StripPlaceholders(draft.Text), docs)
		if err != nil {
			return failed(err)
		}
		if outcome.Method == core.MethodSkipped {
			return &core.StageResult{Data: outcome, SkipReason: skipNoEvidence}
		}
		return &core.StageResult{Success: true, Data: outcome, Confidence: outcome.Confidence}
	})

	switch {
	case result.Skipped():
		st.Verification, _ = result.Data.(*core.VerificationOutcome)
		st.warn("Verification skipped: the retrieved documents contain no checkable text.")
	case !result.Success:
		st.warn(fmt.Sprintf("Verification failed (%v); the answer is based on unverified documents.", result.Err))
	default:
		outcome := result.Data.(*core.VerificationOutcome)
		st.Verification = outcome
		if outcome.Method == core.MethodKeywordFallback {
			st.warn("Verification used keyword overlap because embeddings were unavailable.")
		}
		if n := len(outcome.Unsupported); n > 0 {
			st.warn(fmt.Sprintf("%d of %d statements could not be verified against the retrieved evidence.",
				n, outcome.TotalFactualSentences))
		}
	}
}

// composeDraft asks the synthesizer for the answer that verification checks.
// It runs under the draft budget so the verifier keeps its own.
func (o *Orchestrator) composeDraft(ctx context.Context, q core.Query, docs []*core.EnhancedResult) (*ai.Synthesis, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Budgets.Draft)
	defer cancel()
	draft, err := o.synthesizer.Compose(ctx, ai.SynthesisRequest{
		Query:     q.Text,
		Mode:      ai.ModeDraft,
		Documents: docs,
		MaxTokens: q.UserTokenBudget,
	})
	if err != nil {
		return nil, err
	}
	if draft == nil || strings.TrimSpace(draft.Text) == "" {
		return nil, ErrEmptyAnswer
	}
	return draft, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, st *State, deadline time.Time) {
	budget := max(o.config.Budgets.MinSynthesize, time.Until(deadline))
	q := st.Query
	docs := st.documents()

	if st.Synthesis != nil {
		// Served from the answer cache during verification.
		cachedSynthesis := st.Synthesis
		o.runStage(ctx, st, core.StageSynthesize, budget, func(context.Context) *core.StageResult {
			return &core.StageResult{Success: true, Data: cachedSynthesis, Confidence: cachedSynthesis.Confidence}
		})
		st.Answer = cachedSynthesis.Text
		return
	}

	verified := st.succeeded(core.StageVerify) && st.Verification != nil
	req := ai.SynthesisRequest{
		Query:     q.Text,
		Mode:      ai.ModeFallback,
		Documents: docs,
		MaxTokens: q.UserTokenBudget,
	}
	if verified {
		req.Mode = ai.ModeVerified
		for _, v := range st.Verification.Verified {
			req.Facts = append(req.Facts, ai.Fact{Statement: v.Sentence, DocumentID: v.EvidenceDocID, Similarity: v.Similarity})
		}
		for _, u := range st.Verification.Unsupported {
			req.Unsupported = append(req.Unsupported, u.Sentence)
		}
	}
	fallbackFactor := o.config.FallbackFactor

	result := o.runStage(ctx, st, core.StageSynthesize, budget, func(ctx context.Context) *core.StageResult {
		syn, err := o.synthesizer.Compose(ctx, req)
		if err != nil {
			return failed(err)
		}
		if syn == nil || strings.TrimSpace(syn.Text) == "" {
			return failed(ErrEmptyAnswer)
		}
		confidence := clamp01(syn.Confidence)
		if !verified {
			confidence *= fallbackFactor
		}
		out := &ai.Synthesis{Text: strings.TrimSpace(syn.Text), Confidence: confidence, Mode: req.Mode}
		return &core.StageResult{Success: true, Data: out, Confidence: confidence}
	})

	if result.Success {
		st.Synthesis = result.Data.(*ai.Synthesis)
		st.Answer = st.Synthesis.Text
		if verified {
			o.storeAnswer(ctx, q, docs, storage.CachedAnswer{Text: st.Synthesis.Text, Confidence: st.Synthesis.Confidence})
		}
		return
	}

	if len(docs) == 0 {
		st.warn(fmt.Sprintf("Answer synthesis failed: %v.", result.Err))
		return
	}
	confidence := 0.0
	if st.Retrieval != nil {
		confidence = st.Retrieval.ConfidenceScore * fallbackFactor
	}
	st.Answer = extractiveAnswer(docs, o.config.ExtractiveSnippets)
	st.Synthesis = &ai.Synthesis{Text: st.Answer, Confidence: confidence, Mode: ai.ModeFallback}
	st.warn(fmt.Sprintf("Answer synthesis failed (%v); returning excerpts from the top documents.", result.Err))
}

func (o *Orchestrator) cite(ctx context.Context, st *State) {
	if st.Answer == "" {
		o.skipStage(ctx, st, core.StageCite, skipNoAnswer)
		return
	}

	answer := st.Answer
	docs := st.documents()
	result := o.runStage(ctx, st, core.StageCite, o.config.Budgets.Cite, func(context.Context) *core.StageResult {
		text, citations, err := o.formatter.Format(answer, docs)
		if err != nil {
			return failed(err)
		}
		return &core.StageResult{Success: true, Data: &CitedAnswer{Text: text, Citations: citations}, Confidence: 1}
	})

	if !result.Success {
		st.Answer = cite.StripPlaceholders(answer)
		st.warn(fmt.Sprintf("Citation formatting failed (%v); returning the answer without citations.", result.Err))
		return
	}
	cited := result.Data.(*CitedAnswer)
	st.Answer = cited.Text
	st.Citations = cited.Citations
}

// extractiveAnswer quotes the snippets of the top n documents, each cited.
func extractiveAnswer(docs []*core.EnhancedResult, n int) string {
	var parts []string
	for _, d := range docs {
		if len(parts) == n {
			break
		}
		text := d.Snippet
		if text == "" {
			text = retrieval.Snippet(d.Content, "")
		}
		if text == "" {
			continue
		}
		parts = append(parts, text+" "+cite.Placeholder(d.DocumentID))
	}
	return strings.Join(parts, "\n")
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return min(v, 1)
}
