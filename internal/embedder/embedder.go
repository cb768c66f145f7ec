// Package embedder provides interfaces and implementations for query
// embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services. The search
// core calls Embed once per search on the query text; document-side
// embedding belongs to the ingestion subsystem.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
