package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPCrossEncoderScoreAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("path = %q, want /rerank", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}

		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "pooling" {
			t.Errorf("query = %q", req.Query)
		}
		if len(req.Texts) != 3 {
			t.Errorf("got %d texts", len(req.Texts))
		}

		// Service returns entries sorted by score, not input order.
		json.NewEncoder(w).Encode([]rerankScore{
			{Index: 2, Score: 0.9},
			{Index: 0, Score: 0.5},
			{Index: 1, Score: 0.1},
		})
	}))
	defer server.Close()

	encoder := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{BaseURL: server.URL})
	scores, err := encoder.ScoreAll(context.Background(), []string{"a", "b", "c"}, "pooling")
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	want := []float64{0.5, 0.1, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestHTTPCrossEncoderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"server error status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
		},
		{
			"score count mismatch",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]rerankScore{{Index: 0, Score: 0.5}})
			},
		},
		{
			"out of range index",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]rerankScore{
					{Index: 0, Score: 0.5}, {Index: 7, Score: 0.1},
				})
			},
		},
		{
			"duplicate index",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]rerankScore{
					{Index: 0, Score: 0.5}, {Index: 0, Score: 0.1},
				})
			},
		},
		{
			"malformed body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			encoder := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{BaseURL: server.URL})
			if _, err := encoder.ScoreAll(context.Background(), []string{"a", "b"}, "q"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
