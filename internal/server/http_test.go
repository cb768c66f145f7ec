package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebc-dev/alexandria/internal/evaluation"
	"github.com/sebc-dev/alexandria/internal/search"
)

type fakeSearcher struct {
	lastReq search.Request
	results []search.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeEvaluator struct {
	lastLabel string
	summary   *evaluation.Summary
	err       error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, label string) (*evaluation.Summary, error) {
	f.lastLabel = label
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func newTestServer(searcher Searcher, evaluator Evaluator, apiKey string) *HTTPServer {
	return NewHTTPServer(HTTPServerConfig{
		Port:   0,
		APIKey: apiKey,
	}, searcher, evaluator)
}

func postJSON(t *testing.T, s *HTTPServer, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{Text: "passage", SourceURL: "https://docs/a", SectionPath: "guide", RerankScore: 0.9},
	}}
	s := newTestServer(searcher, &fakeEvaluator{}, "")

	rec := postJSON(t, s, "/v1/search", map[string]any{
		"query":        "connection pooling",
		"max_results":  5,
		"source":       "pgx-docs",
		"content_type": "prose",
		"min_score":    0.2,
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if searcher.lastReq.Query != "connection pooling" {
		t.Errorf("query = %q", searcher.lastReq.Query)
	}
	if searcher.lastReq.MaxResults != 5 {
		t.Errorf("maxResults = %d", searcher.lastReq.MaxResults)
	}
	if searcher.lastReq.Source == nil || *searcher.lastReq.Source != "pgx-docs" {
		t.Errorf("source = %v", searcher.lastReq.Source)
	}
	if searcher.lastReq.MinScore == nil || *searcher.lastReq.MinScore != 0.2 {
		t.Errorf("minScore = %v", searcher.lastReq.MinScore)
	}

	var resp searchResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].SourceURL != "https://docs/a" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestHandleSearchDefaultsMaxResults(t *testing.T) {
	searcher := &fakeSearcher{}
	s := newTestServer(searcher, &fakeEvaluator{}, "")

	rec := postJSON(t, s, "/v1/search", map[string]any{"query": "q"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if searcher.lastReq.MaxResults != 10 {
		t.Errorf("maxResults = %d, want 10", searcher.lastReq.MaxResults)
	}
}

func TestHandleSearchBadRequests(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, &fakeEvaluator{}, "")

	t.Run("blank query", func(t *testing.T) {
		rec := postJSON(t, s, "/v1/search", map[string]any{"query": "  "}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleSearchBackendFailure(t *testing.T) {
	s := newTestServer(&fakeSearcher{err: errors.New("qdrant unavailable")}, &fakeEvaluator{}, "")

	rec := postJSON(t, s, "/v1/search", map[string]any{"query": "q"}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleEvalRun(t *testing.T) {
	evaluator := &fakeEvaluator{summary: &evaluation.Summary{
		RunID:  "run-1",
		Passed: true,
	}}
	s := newTestServer(&fakeSearcher{}, evaluator, "")

	rec := postJSON(t, s, "/v1/eval/run", map[string]any{"label": "tuning"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if evaluator.lastLabel != "tuning" {
		t.Errorf("label = %q", evaluator.lastLabel)
	}

	var summary evaluation.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.RunID != "run-1" || !summary.Passed {
		t.Errorf("summary = %+v", summary)
	}
}

func TestHandleEvalRunDefaultsLabel(t *testing.T) {
	evaluator := &fakeEvaluator{summary: &evaluation.Summary{RunID: "run-2"}}
	s := newTestServer(&fakeSearcher{}, evaluator, "")

	rec := postJSON(t, s, "/v1/eval/run", map[string]any{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if evaluator.lastLabel != "adhoc" {
		t.Errorf("label = %q, want adhoc", evaluator.lastLabel)
	}
}

func TestAPIRoutesRequireKey(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, &fakeEvaluator{}, "secret")

	rec := postJSON(t, s, "/v1/search", map[string]any{"query": "q"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	rec = postJSON(t, s, "/v1/search", map[string]any{"query": "q"},
		map[string]string{"X-API-Key": "secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec.Code)
	}
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, &fakeEvaluator{}, "secret")

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
