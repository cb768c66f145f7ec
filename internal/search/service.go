// Package search orchestrates the retrieval and ranking pipeline: query
// embedding, filter construction, over-fetched candidate retrieval, score
// fusion, and cross-encoder reranking.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sebc-dev/alexandria/internal/fusion"
	"github.com/sebc-dev/alexandria/internal/retrieval"
)

// candidateLimit is the fixed over-fetch depth, independent of the caller's
// maxResults. It must exceed the deepest reranking/evaluation cutoff so
// reranking has enough candidates to reorder.
const candidateLimit = 50

// mixedContentType is the content-type sentinel meaning "no filter".
const mixedContentType = "mixed"

// DefaultFusionAlpha is the default weight of the vector signal in fusion.
const DefaultFusionAlpha = 0.7

// Result is one ranked, citable search hit, ordered by RerankScore
// descending.
type Result struct {
	Text           string  `json:"text"`
	RetrievalScore float64 `json:"retrieval_score"`
	SourceURL      string  `json:"source_url"`
	SectionPath    string  `json:"section_path"`
	RerankScore    float64 `json:"rerank_score"`
}

// Embedder generates the query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker rescores fused candidates with query-aware relevance.
// Implementations: rerank.Reranker (cross-encoder backed).
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []fusion.Result, maxResults int, minScore *float64) ([]Result, error)
}

// Service runs the search pipeline. It is stateless and safe for concurrent
// use by independent callers.
type Service struct {
	embedder  Embedder
	retriever retrieval.Retriever
	reranker  Reranker
	alpha     float64
	logger    *slog.Logger
}

// ServiceOption is a functional option for configuring Service.
type ServiceOption func(*Service)

// WithFusionAlpha sets the vector weight used in score fusion.
func WithFusionAlpha(alpha float64) ServiceOption {
	return func(s *Service) {
		s.alpha = alpha
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a search service.
func NewService(embedder Embedder, retriever retrieval.Retriever, reranker Reranker, opts ...ServiceOption) *Service {
	s := &Service{
		embedder:  embedder,
		retriever: retriever,
		reranker:  reranker,
		alpha:     DefaultFusionAlpha,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the full pipeline for one request. Backend failures propagate
// unmodified; there is no retry and no degraded fallback.
func (s *Service) Search(ctx context.Context, req Request) ([]Result, error) {
	queryVector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filter := buildFilter(req)

	set, err := s.retriever.Retrieve(ctx, retrieval.Query{
		Vector: queryVector,
		Text:   req.Query,
		Filter: filter,
		Limit:  candidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}

	var fused []fusion.Result
	if set.IsFused() {
		// Backend performed its own fusion; keep its ranking.
		fused = fusion.FromRanked(set.Fused)
	} else {
		fused = fusion.Fuse(set.Vector, set.Keyword, s.alpha, candidateLimit)
	}

	s.logger.Debug("retrieved candidates",
		"query", req.Query,
		"fused", len(fused),
		"backend_fused", set.IsFused(),
	)

	return s.reranker.Rerank(ctx, req.Query, fused, req.MaxResults, req.MinScore)
}

// buildFilter ANDs together whichever optional request fields are present.
// Returns nil when no field constrains the search.
func buildFilter(req Request) retrieval.Filter {
	var filters []retrieval.Filter

	if req.Source != nil {
		filters = append(filters, retrieval.Equals{Field: retrieval.MetaSourceName, Value: *req.Source})
	}
	if req.Version != nil {
		filters = append(filters, retrieval.Equals{Field: retrieval.MetaVersion, Value: *req.Version})
	}
	if req.SectionPath != nil {
		filters = append(filters, retrieval.ContainsSubstring{
			Field: retrieval.MetaSectionPath,
			Value: Slugify(*req.SectionPath),
		})
	}
	if req.ContentType != nil && !strings.EqualFold(*req.ContentType, mixedContentType) {
		filters = append(filters, retrieval.Equals{Field: retrieval.MetaContentType, Value: *req.ContentType})
	}

	return retrieval.AndAll(filters...)
}
