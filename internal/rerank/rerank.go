// Package rerank rescores fused candidates with a cross-encoder.
//
// A cross-encoder sees the query and passage together, which is more precise
// than independent vector similarity but more expensive, so it is applied
// only to the over-fetched candidate set of a single search.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/sebc-dev/alexandria/internal/fusion"
	"github.com/sebc-dev/alexandria/internal/retrieval"
	"github.com/sebc-dev/alexandria/internal/search"
)

// CrossEncoder scores (text, query) pairs jointly. ScoreAll must return one
// score per input text, in input order.
type CrossEncoder interface {
	ScoreAll(ctx context.Context, texts []string, query string) ([]float64, error)
}

// Reranker reorders fused candidates by cross-encoder relevance.
type Reranker struct {
	scorer CrossEncoder
}

// New creates a reranker on top of a cross-encoder scorer.
func New(scorer CrossEncoder) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank scores all candidates in one batched call, filters by minScore when
// present (inclusive), sorts by rerank score descending, and truncates to
// maxResults. A scorer failure propagates to the caller unmodified; a failed
// rerank fails the whole search call.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []fusion.Result, maxResults int, minScore *float64) ([]search.Result, error) {
	if len(candidates) == 0 {
		return []search.Result{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scores, err := r.scorer.ScoreAll(ctx, texts, query)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d candidates", len(scores), len(candidates))
	}

	results := make([]search.Result, 0, len(candidates))
	for i, c := range candidates {
		if minScore != nil && scores[i] < *minScore {
			continue
		}
		results = append(results, search.Result{
			Text:           c.Text,
			RetrievalScore: c.CombinedScore,
			SourceURL:      c.Metadata[retrieval.MetaSourceURL],
			SectionPath:    c.Metadata[retrieval.MetaSectionPath],
			RerankScore:    scores[i],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// Ensure Reranker satisfies the orchestrator's contract.
var _ search.Reranker = (*Reranker)(nil)
