package evaluation

import (
	"math"
	"sort"
)

// Metrics holds the six ranking quality metrics at one cutoff.
type Metrics struct {
	Recall    float64
	Precision float64
	MRR       float64
	NDCG      float64
	AP        float64
	HitRate   float64
}

// A document is relevant iff its judged grade is at least 1; unjudged
// documents are grade 0. All metrics are defined as 0.0 for empty retrieved
// lists or empty judgment sets — never a division by zero, never a panic.

// RecallAtK is the fraction of all relevant documents found in the top-k.
func RecallAtK(retrieved []string, judgments []RelevanceJudgment, k int) float64 {
	return ComputeAll(retrieved, judgments, k).Recall
}

// PrecisionAtK is the fraction of the top-k (capped at the retrieved length)
// that is relevant.
func PrecisionAtK(retrieved []string, judgments []RelevanceJudgment, k int) float64 {
	return ComputeAll(retrieved, judgments, k).Precision
}

// MRR is the reciprocal rank of the first relevant document within the
// top-k, 0 if none is found.
func MRR(retrieved []string, judgments []RelevanceJudgment, k int) float64 {
	return ComputeAll(retrieved, judgments, k).MRR
}

// NDCGAtK is DCG over graded relevance normalized by the ideal ordering of
// the judgments, truncated to k.
func NDCGAtK(retrieved []string, judgments []RelevanceJudgment, k int) float64 {
	return ComputeAll(retrieved, judgments, k).NDCG
}

// AveragePrecision is the mean of precision at each rank where a relevant
// document occurs, within the top-k.
func AveragePrecision(retrieved []string, judgments []RelevanceJudgment, k int) float64 {
	return ComputeAll(retrieved, judgments, k).AP
}

// HitRate is 1.0 if at least one relevant document appears in the top-k.
func HitRate(retrieved []string, judgments []RelevanceJudgment, k int) float64 {
	return ComputeAll(retrieved, judgments, k).HitRate
}

// ComputeAll computes all six metrics in one pass over the top-k, sharing
// the grade lookups.
func ComputeAll(retrieved []string, judgments []RelevanceJudgment, k int) Metrics {
	if len(retrieved) == 0 || len(judgments) == 0 || k <= 0 {
		return Metrics{}
	}

	grades := make(map[string]int, len(judgments))
	totalRelevant := 0
	for _, j := range judgments {
		grades[j.ChunkID] = j.Grade
		if j.Grade >= 1 {
			totalRelevant++
		}
	}

	topK := retrieved
	if k < len(topK) {
		topK = topK[:k]
	}

	var m Metrics

	// Recall, precision, MRR, AP, hit rate over binary relevance
	foundRelevant := 0                      // relevant positions in top-k
	distinctFound := make(map[string]bool)  // distinct relevant ids for recall
	apSum := 0.0
	for i, id := range topK {
		if grades[id] < 1 {
			continue
		}
		if foundRelevant == 0 {
			m.MRR = 1.0 / float64(i+1)
		}
		foundRelevant++
		distinctFound[id] = true
		apSum += float64(foundRelevant) / float64(i+1)
	}

	if totalRelevant > 0 {
		m.Recall = float64(len(distinctFound)) / float64(totalRelevant)
	}
	m.Precision = float64(foundRelevant) / float64(min(k, len(retrieved)))
	if foundRelevant > 0 {
		m.AP = apSum / float64(foundRelevant)
		m.HitRate = 1.0
	}

	// NDCG over graded relevance, 1-indexed positions
	dcg := 0.0
	for i, id := range topK {
		dcg += float64(grades[id]) / math.Log2(float64(i+2))
	}

	idealGrades := make([]int, 0, len(judgments))
	for _, j := range judgments {
		idealGrades = append(idealGrades, j.Grade)
	}
	// Descending by grade; ties in any order
	sort.Sort(sort.Reverse(sort.IntSlice(idealGrades)))
	if len(idealGrades) > k {
		idealGrades = idealGrades[:k]
	}
	idcg := 0.0
	for i, g := range idealGrades {
		idcg += float64(g) / math.Log2(float64(i+2))
	}
	if idcg > 0 {
		m.NDCG = dcg / idcg
	}

	return m
}
