// Package retrieval defines the candidate model and backends for fetching
// ranked documentation chunks from the vector and keyword indexes.
package retrieval

import "context"

// SourceKind identifies which retrieval signal produced a candidate.
type SourceKind int

const (
	// SourceVector marks candidates scored by dense vector similarity.
	SourceVector SourceKind = iota

	// SourceKeyword marks candidates scored by keyword relevance.
	SourceKeyword
)

// Metadata keys written by the ingestion pipeline. These are the stable
// contract between chunk storage and the search core.
const (
	MetaSourceURL   = "source_url"
	MetaSectionPath = "section_path"
	MetaSourceName  = "source_name"
	MetaVersion     = "version"
	MetaContentType = "content_type"
)

// Candidate is one retrieved chunk before fusion and reranking.
// Identity is ID, which is stable across both signal sources so overlap
// between lists can be detected.
type Candidate struct {
	ID       string
	Text     string
	Vector   []float32 // nil for keyword-only candidates
	Score    float64
	Kind     SourceKind
	Metadata map[string]string
}

// Query carries everything a backend needs for one over-fetched retrieval.
type Query struct {
	Vector []float32
	Text   string
	Filter Filter // nil means unfiltered
	Limit  int
}

// CandidateSet is the result of one retrieval call. Exactly one shape is
// populated: Fused when the backend ranked candidates itself, or the
// Vector/Keyword pair when score fusion is left to the caller.
type CandidateSet struct {
	Fused   []Candidate
	Vector  []Candidate
	Keyword []Candidate
}

// IsFused reports whether the backend already produced a single ranked list.
func (s CandidateSet) IsFused() bool {
	return s.Fused != nil
}

// Retriever fetches an over-fetched candidate set for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q Query) (CandidateSet, error)
}

// VectorSearcher performs dense similarity search.
type VectorSearcher interface {
	SearchVectors(ctx context.Context, vector []float32, filter Filter, limit int) ([]Candidate, error)
}

// KeywordSearcher performs full-text keyword search.
type KeywordSearcher interface {
	SearchKeywords(ctx context.Context, query string, filter Filter, limit int) ([]Candidate, error)
}
