package retrieval

import (
	"context"
	"fmt"
)

// HybridRetriever fetches the dense and keyword candidate lists from two
// independent backends and returns them separately so the caller can fuse
// their scores. A failure on either side fails the whole retrieval; there is
// no degraded single-signal fallback.
type HybridRetriever struct {
	vectors  VectorSearcher
	keywords KeywordSearcher
}

// NewHybridRetriever creates a retriever combining a vector and a keyword
// search backend.
func NewHybridRetriever(vectors VectorSearcher, keywords KeywordSearcher) *HybridRetriever {
	return &HybridRetriever{
		vectors:  vectors,
		keywords: keywords,
	}
}

// Retrieve implements Retriever.
func (r *HybridRetriever) Retrieve(ctx context.Context, q Query) (CandidateSet, error) {
	vector, err := r.vectors.SearchVectors(ctx, q.Vector, q.Filter, q.Limit)
	if err != nil {
		return CandidateSet{}, fmt.Errorf("failed to retrieve vector candidates: %w", err)
	}

	keyword, err := r.keywords.SearchKeywords(ctx, q.Text, q.Filter, q.Limit)
	if err != nil {
		return CandidateSet{}, fmt.Errorf("failed to retrieve keyword candidates: %w", err)
	}

	return CandidateSet{Vector: vector, Keyword: keyword}, nil
}

// Ensure HybridRetriever implements Retriever.
var _ Retriever = (*HybridRetriever)(nil)
