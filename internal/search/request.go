package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest wraps all request construction failures.
var ErrInvalidRequest = errors.New("invalid search request")

// Request is a validated search query. Construct via NewRequest; a Request
// that exists is never partially valid. Optional fields are nil when absent.
type Request struct {
	Query      string
	MaxResults int

	Source      *string
	SectionPath *string
	Version     *string
	ContentType *string
	MinScore    *float64
}

// RequestOption is a functional option for optional request fields.
type RequestOption func(*Request)

// WithSource restricts results to an exact source name.
func WithSource(source string) RequestOption {
	return func(r *Request) {
		r.Source = &source
	}
}

// WithSectionPath restricts results to sections whose slugified path
// contains the (slugified) value.
func WithSectionPath(path string) RequestOption {
	return func(r *Request) {
		r.SectionPath = &path
	}
}

// WithVersion restricts results to an exact documentation version.
func WithVersion(version string) RequestOption {
	return func(r *Request) {
		r.Version = &version
	}
}

// WithContentType restricts results to an exact content type. The value
// "mixed" (case-insensitive) means no restriction.
func WithContentType(contentType string) RequestOption {
	return func(r *Request) {
		r.ContentType = &contentType
	}
}

// WithMinScore drops reranked results scoring below the threshold.
func WithMinScore(minScore float64) RequestOption {
	return func(r *Request) {
		r.MinScore = &minScore
	}
}

// NewRequest builds a validated request. A blank query or non-positive
// maxResults fails immediately.
func NewRequest(query string, maxResults int, opts ...RequestOption) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("%w: query must not be blank", ErrInvalidRequest)
	}
	if maxResults < 1 {
		return Request{}, fmt.Errorf("%w: maxResults must be at least 1, got %d", ErrInvalidRequest, maxResults)
	}

	r := Request{Query: query, MaxResults: maxResults}
	for _, opt := range opts {
		opt(&r)
	}
	return r, nil
}
