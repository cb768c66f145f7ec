// Package fusion combines independently scored candidate lists into a single
// ranking via normalized convex combination.
package fusion

import (
	"sort"

	"github.com/sebc-dev/alexandria/internal/retrieval"
)

// Result is one fused candidate. CombinedScore is in [0,1] whenever both
// input lists are non-empty and alpha is in [0,1].
type Result struct {
	ID            string
	Text          string
	Vector        []float32
	Metadata      map[string]string
	CombinedScore float64
}

// Fuse merges the vector and keyword candidate lists into one ranking.
//
// Each list's raw scores are min-max normalized independently; a list where
// all scores are equal (including single-element lists) normalizes to 1.0
// rather than 0/0, so a single hit still contributes its full weight. Every
// distinct id scores alpha*normVector + (1-alpha)*normKeyword, with a missing
// id contributing 0 on that side. Ids present in both lists fuse into one
// result carrying the vector-side text and embedding; keyword-only results
// carry an explicit empty vector. Ties keep input order (vector list first).
func Fuse(vectorResults, keywordResults []retrieval.Candidate, alpha float64, maxResults int) []Result {
	vectorNorm := normalize(vectorResults)
	keywordNorm := normalize(keywordResults)

	byID := make(map[string]*Result)
	order := make([]string, 0, len(vectorResults)+len(keywordResults))

	for _, c := range vectorResults {
		if _, seen := byID[c.ID]; seen {
			continue
		}
		vec := c.Vector
		if vec == nil {
			vec = []float32{}
		}
		byID[c.ID] = &Result{
			ID:       c.ID,
			Text:     c.Text,
			Vector:   vec,
			Metadata: c.Metadata,
		}
		order = append(order, c.ID)
	}

	for _, c := range keywordResults {
		if _, seen := byID[c.ID]; seen {
			continue
		}
		byID[c.ID] = &Result{
			ID:       c.ID,
			Text:     c.Text,
			Vector:   []float32{},
			Metadata: c.Metadata,
		}
		order = append(order, c.ID)
	}

	fused := make([]Result, 0, len(order))
	for _, id := range order {
		r := byID[id]
		r.CombinedScore = alpha*vectorNorm[id] + (1-alpha)*keywordNorm[id]
		fused = append(fused, *r)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].CombinedScore > fused[j].CombinedScore
	})

	if len(fused) > maxResults {
		fused = fused[:maxResults]
	}
	return fused
}

// FromRanked converts a backend-fused candidate list into results, keeping
// the backend's ranking and raw scores. Used when the retrieval backend
// performed its own fusion.
func FromRanked(candidates []retrieval.Candidate) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		vec := c.Vector
		if vec == nil {
			vec = []float32{}
		}
		results = append(results, Result{
			ID:            c.ID,
			Text:          c.Text,
			Vector:        vec,
			Metadata:      c.Metadata,
			CombinedScore: c.Score,
		})
	}
	return results
}

// normalize min-max normalizes a list's raw scores. An empty list yields an
// empty map, so every id contributes 0. When max == min every score
// normalizes to 1.0.
func normalize(candidates []retrieval.Candidate) map[string]float64 {
	norm := make(map[string]float64, len(candidates))
	if len(candidates) == 0 {
		return norm
	}

	minScore, maxScore := candidates[0].Score, candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score < minScore {
			minScore = c.Score
		}
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}

	for _, c := range candidates {
		if maxScore == minScore {
			norm[c.ID] = 1.0
		} else {
			norm[c.ID] = (c.Score - minScore) / (maxScore - minScore)
		}
	}
	return norm
}
