package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultCrossEncoderBaseURL is the default scoring service base URL.
const DefaultCrossEncoderBaseURL = "http://localhost:8082"

// HTTPCrossEncoderConfig holds configuration for the HTTP cross-encoder
// client.
type HTTPCrossEncoderConfig struct {
	// BaseURL is the scoring service base URL (default: http://localhost:8082).
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// HTTPCrossEncoder scores (text, query) pairs through a rerank inference
// service speaking the text-embeddings-inference /rerank protocol.
type HTTPCrossEncoder struct {
	baseURL string
	client  *http.Client
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewHTTPCrossEncoder creates an HTTP cross-encoder client.
func NewHTTPCrossEncoder(cfg HTTPCrossEncoderConfig) *HTTPCrossEncoder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultCrossEncoderBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPCrossEncoder{
		baseURL: baseURL,
		client:  client,
	}
}

// ScoreAll scores all texts against the query in a single request and
// returns scores in input order.
func (e *HTTPCrossEncoder) ScoreAll(ctx context.Context, texts []string, query string) ([]float64, error) {
	reqBody := rerankRequest{
		Query: query,
		Texts: texts,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/rerank", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank API error (status %d): %s", resp.StatusCode, string(body))
	}

	var ranked []rerankScore
	if err := json.NewDecoder(resp.Body).Decode(&ranked); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(ranked) != len(texts) {
		return nil, fmt.Errorf("rerank API returned %d scores for %d texts", len(ranked), len(texts))
	}

	// The service returns entries sorted by score; restore input order by index.
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank API returned out-of-range index %d", r.Index)
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("rerank API returned duplicate index %d", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.Score
	}

	return scores, nil
}

// Ensure HTTPCrossEncoder implements CrossEncoder.
var _ CrossEncoder = (*HTTPCrossEncoder)(nil)
