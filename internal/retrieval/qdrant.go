package retrieval

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

const (
	// Vector field names for hybrid collections
	denseVectorName  = "dense"
	sparseVectorName = "sparse"

	contentPayloadKey = "content"
)

// SparseVector represents a sparse vector with indices and values.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// SparseVectorizer converts query text to a sparse vector for server-side
// hybrid search.
type SparseVectorizer interface {
	Vectorize(text string) *SparseVector
}

// QdrantRetriever retrieves candidates from a Qdrant collection. Without a
// sparse vectorizer it serves as the dense half of a HybridRetriever; with
// one it performs server-side RRF fusion and returns a single ranked list.
type QdrantRetriever struct {
	client     *qdrant.Client
	collection string
	sparse     SparseVectorizer
}

// QdrantOption is a functional option for configuring QdrantRetriever.
type QdrantOption func(*QdrantRetriever)

// WithSparseVectorizer enables server-side hybrid search with the given
// sparse vectorizer.
func WithSparseVectorizer(v SparseVectorizer) QdrantOption {
	return func(r *QdrantRetriever) {
		r.sparse = v
	}
}

// NewQdrantRetriever creates a Qdrant-backed retriever.
// url should be in format "host:port" (e.g., "localhost:6334").
func NewQdrantRetriever(ctx context.Context, url, collection string, opts ...QdrantOption) (*QdrantRetriever, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	r := &QdrantRetriever{client: client, collection: collection}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the Qdrant client connection.
func (r *QdrantRetriever) Close() error {
	return r.client.Close()
}

// Retrieve fetches candidates for the query. With a sparse vectorizer the
// collection is queried once with server-side RRF fusion and the result is
// already a single ranked list; otherwise only the dense list is populated
// and fusion is left to the caller.
func (r *QdrantRetriever) Retrieve(ctx context.Context, q Query) (CandidateSet, error) {
	if r.sparse == nil {
		dense, err := r.SearchVectors(ctx, q.Vector, q.Filter, q.Limit)
		if err != nil {
			return CandidateSet{}, err
		}
		return CandidateSet{Vector: dense}, nil
	}

	fused, err := r.hybridSearch(ctx, q)
	if err != nil {
		return CandidateSet{}, err
	}
	return CandidateSet{Fused: fused}, nil
}

// SearchVectors performs dense similarity search.
func (r *QdrantRetriever) SearchVectors(ctx context.Context, vector []float32, filter Filter, limit int) ([]Candidate, error) {
	response, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         translateFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	return pointsToCandidates(response, SourceVector), nil
}

// hybridSearch queries with dense and sparse prefetch and server-side RRF.
func (r *QdrantRetriever) hybridSearch(ctx context.Context, q Query) ([]Candidate, error) {
	prefetchLimit := uint64(q.Limit * 2) // extra candidates for fusion

	prefetch := []*qdrant.PrefetchQuery{
		{
			Query:  qdrant.NewQueryDense(q.Vector),
			Using:  qdrant.PtrOf(denseVectorName),
			Filter: translateFilter(q.Filter),
			Limit:  qdrant.PtrOf(prefetchLimit),
		},
	}

	if sv := r.sparse.Vectorize(q.Text); sv != nil && len(sv.Indices) > 0 {
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query:  qdrant.NewQuerySparse(sv.Indices, sv.Values),
			Using:  qdrant.PtrOf(sparseVectorName),
			Filter: translateFilter(q.Filter),
			Limit:  qdrant.PtrOf(prefetchLimit),
		})
	}

	response, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:          qdrant.PtrOf(uint64(q.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hybrid search: %w", err)
	}

	return pointsToCandidates(response, SourceVector), nil
}

// translateFilter converts a filter tree into a Qdrant payload filter.
func translateFilter(f Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	return &qdrant.Filter{Must: translateConditions(f)}
}

// translateConditions flattens the AND-tree into a Must condition list.
func translateConditions(f Filter) []*qdrant.Condition {
	switch v := f.(type) {
	case Equals:
		return []*qdrant.Condition{qdrant.NewMatch(v.Field, v.Value)}
	case ContainsSubstring:
		return []*qdrant.Condition{qdrant.NewMatchText(v.Field, v.Value)}
	case And:
		return append(translateConditions(v.Left), translateConditions(v.Right)...)
	}
	return nil
}

func pointsToCandidates(points []*qdrant.ScoredPoint, kind SourceKind) []Candidate {
	candidates := make([]Candidate, 0, len(points))
	for _, point := range points {
		cand := Candidate{
			ID:       point.Id.GetUuid(),
			Score:    float64(point.Score),
			Kind:     kind,
			Metadata: make(map[string]string),
		}

		if payload := point.Payload; payload != nil {
			if content, ok := payload[contentPayloadKey]; ok {
				cand.Text = content.GetStringValue()
			}
			for k, v := range payload {
				if k != contentPayloadKey {
					cand.Metadata[k] = v.GetStringValue()
				}
			}
		}

		if vectors := point.Vectors; vectors != nil {
			if vo := vectors.GetVector(); vo != nil {
				cand.Vector = vo.GetData()
			}
		}

		candidates = append(candidates, cand)
	}
	return candidates
}

// Ensure QdrantRetriever satisfies both roles.
var (
	_ Retriever      = (*QdrantRetriever)(nil)
	_ VectorSearcher = (*QdrantRetriever)(nil)
)
