package evaluation

import (
	"math"
	"testing"
)

func judge(t *testing.T, chunkID string, grade int) RelevanceJudgment {
	t.Helper()
	j, err := NewRelevanceJudgment(chunkID, grade)
	if err != nil {
		t.Fatalf("NewRelevanceJudgment(%q, %d): %v", chunkID, grade, err)
	}
	return j
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRecallAtK(t *testing.T) {
	judgments := []RelevanceJudgment{
		judge(t, "a", 2),
		judge(t, "b", 1),
		judge(t, "c", 1),
	}

	tests := []struct {
		name      string
		retrieved []string
		k         int
		want      float64
	}{
		{"two of three found", []string{"a", "x", "b", "y"}, 4, 2.0 / 3.0},
		{"all found", []string{"a", "b", "c"}, 3, 1.0},
		{"none found", []string{"x", "y"}, 2, 0.0},
		{"cutoff hides one", []string{"a", "x", "b"}, 2, 1.0 / 3.0},
		{"duplicate relevant counted once", []string{"a", "a", "x"}, 3, 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecallAtK(tt.retrieved, judgments, tt.k)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("RecallAtK = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrecisionAtK(t *testing.T) {
	judgments := []RelevanceJudgment{judge(t, "a", 1), judge(t, "b", 2)}

	tests := []struct {
		name      string
		retrieved []string
		k         int
		want      float64
	}{
		{"half relevant", []string{"a", "x"}, 2, 0.5},
		{"fewer retrieved than k", []string{"a", "b"}, 10, 1.0},
		{"no relevant", []string{"x", "y", "z"}, 3, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrecisionAtK(tt.retrieved, judgments, tt.k)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("PrecisionAtK = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMRR(t *testing.T) {
	judgments := []RelevanceJudgment{judge(t, "rel", 1)}

	tests := []struct {
		name      string
		retrieved []string
		k         int
		want      float64
	}{
		{"first position", []string{"rel", "x"}, 10, 1.0},
		{"third position", []string{"x", "y", "rel"}, 10, 1.0 / 3.0},
		{"outside cutoff", []string{"x", "y", "rel"}, 2, 0.0},
		{"absent", []string{"x", "y"}, 10, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MRR(tt.retrieved, judgments, tt.k)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("MRR = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNDCGAtK(t *testing.T) {
	// Retrieved [grade 2, 0, 1]: DCG = 2 + 0 + 1/log2(4).
	// Ideal [2, 1]: IDCG = 2 + 1/log2(3). NDCG ~ 0.9503.
	judgments := []RelevanceJudgment{judge(t, "a", 2), judge(t, "b", 1)}
	retrieved := []string{"a", "x", "b"}

	got := NDCGAtK(retrieved, judgments, 3)
	if !almostEqual(got, 0.9503, 0.001) {
		t.Errorf("NDCGAtK = %v, want ~0.9503", got)
	}

	t.Run("perfect ranking is 1", func(t *testing.T) {
		got := NDCGAtK([]string{"a", "b"}, judgments, 2)
		if !almostEqual(got, 1.0, 1e-9) {
			t.Errorf("NDCGAtK = %v, want 1.0", got)
		}
	})

	t.Run("no relevant is 0", func(t *testing.T) {
		got := NDCGAtK([]string{"x", "y"}, judgments, 2)
		if got != 0 {
			t.Errorf("NDCGAtK = %v, want 0", got)
		}
	})
}

func TestAveragePrecision(t *testing.T) {
	// Relevant at ranks 1 and 3: AP = (1/1 + 2/3) / 2 = 0.8333.
	judgments := []RelevanceJudgment{judge(t, "a", 2), judge(t, "b", 1)}
	retrieved := []string{"a", "x", "b", "y"}

	got := AveragePrecision(retrieved, judgments, 4)
	if !almostEqual(got, 0.8333, 0.001) {
		t.Errorf("AveragePrecision = %v, want ~0.8333", got)
	}

	t.Run("no relevant found", func(t *testing.T) {
		if got := AveragePrecision([]string{"x"}, judgments, 1); got != 0 {
			t.Errorf("AveragePrecision = %v, want 0", got)
		}
	})
}

func TestHitRate(t *testing.T) {
	judgments := []RelevanceJudgment{judge(t, "a", 1)}

	if got := HitRate([]string{"x", "a"}, judgments, 2); got != 1.0 {
		t.Errorf("HitRate = %v, want 1.0", got)
	}
	if got := HitRate([]string{"x", "a"}, judgments, 1); got != 0.0 {
		t.Errorf("HitRate = %v, want 0.0", got)
	}
}

func TestMetricsEmptyInputs(t *testing.T) {
	judgments := []RelevanceJudgment{judge(t, "a", 1)}

	tests := []struct {
		name      string
		retrieved []string
		judgments []RelevanceJudgment
		k         int
	}{
		{"empty retrieved", []string{}, judgments, 10},
		{"empty judgments", []string{"a"}, nil, 10},
		{"zero k", []string{"a"}, judgments, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeAll(tt.retrieved, tt.judgments, tt.k)
			if m != (Metrics{}) {
				t.Errorf("ComputeAll = %+v, want all zeros", m)
			}
		})
	}
}

func TestMetricsBounds(t *testing.T) {
	judgments := []RelevanceJudgment{
		judge(t, "a", 2), judge(t, "b", 1), judge(t, "c", 1), judge(t, "d", 2),
	}
	retrieved := []string{"b", "x", "a", "y", "d", "z", "c"}

	m := ComputeAll(retrieved, judgments, 5)
	for name, v := range map[string]float64{
		"recall":    m.Recall,
		"precision": m.Precision,
		"mrr":       m.MRR,
		"ndcg":      m.NDCG,
		"ap":        m.AP,
		"hit rate":  m.HitRate,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
}

func TestNewRelevanceJudgmentValidation(t *testing.T) {
	if _, err := NewRelevanceJudgment("", 1); err == nil {
		t.Error("blank chunk id accepted")
	}
	if _, err := NewRelevanceJudgment("a", 3); err == nil {
		t.Error("grade 3 accepted")
	}
	if _, err := NewRelevanceJudgment("a", -1); err == nil {
		t.Error("grade -1 accepted")
	}
	j, err := NewRelevanceJudgment("a", 0)
	if err != nil {
		t.Fatalf("grade 0 rejected: %v", err)
	}
	if j.Grade != 0 {
		t.Errorf("grade = %d, want 0", j.Grade)
	}
}
