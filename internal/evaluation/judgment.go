// Package evaluation measures retrieval ranking quality against a graded
// golden set and exports the per-query and aggregate results.
package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

// QueryType categorizes golden-set queries for per-type metric breakdowns.
type QueryType string

const (
	QueryFactual         QueryType = "FACTUAL"
	QueryConceptual      QueryType = "CONCEPTUAL"
	QueryCodeLookup      QueryType = "CODE_LOOKUP"
	QueryTroubleshooting QueryType = "TROUBLESHOOTING"
)

// queryTypeOrder fixes the row order of per-type CSV output.
var queryTypeOrder = []QueryType{QueryFactual, QueryConceptual, QueryCodeLookup, QueryTroubleshooting}

// ErrInvalidJudgment wraps judgment construction failures.
var ErrInvalidJudgment = errors.New("invalid relevance judgment")

// RelevanceJudgment grades one chunk's relevance to a query. Grade 0 means
// not relevant; a chunk absent from the judgment list is also grade 0.
// By convention golden-set entries only carry grade 1 and 2 judgments.
type RelevanceJudgment struct {
	ChunkID string `json:"chunk_id"`
	Grade   int    `json:"grade"`
}

// NewRelevanceJudgment builds a validated judgment. Grades outside [0,2]
// fail immediately.
func NewRelevanceJudgment(chunkID string, grade int) (RelevanceJudgment, error) {
	if strings.TrimSpace(chunkID) == "" {
		return RelevanceJudgment{}, fmt.Errorf("%w: chunk id must not be blank", ErrInvalidJudgment)
	}
	if grade < 0 || grade > 2 {
		return RelevanceJudgment{}, fmt.Errorf("%w: grade must be in [0,2], got %d", ErrInvalidJudgment, grade)
	}
	return RelevanceJudgment{ChunkID: chunkID, Grade: grade}, nil
}

// GoldenSetEntry is one golden-set query with its graded judgments.
// Entries are never mutated after load.
type GoldenSetEntry struct {
	Query     string              `json:"query"`
	QueryType QueryType           `json:"query_type"`
	Judgments []RelevanceJudgment `json:"judgments"`
}

func validQueryType(t QueryType) bool {
	for _, known := range queryTypeOrder {
		if t == known {
			return true
		}
	}
	return false
}
