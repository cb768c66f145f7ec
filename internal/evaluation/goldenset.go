package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
)

// GoldenSource loads the golden set for one evaluation run.
type GoldenSource interface {
	Load() ([]GoldenSetEntry, error)
}

// FileGoldenSource loads the golden set from a JSON file of the form
// [{"query": ..., "query_type": "FACTUAL", "judgments": [{"chunk_id": ..., "grade": 2}]}].
type FileGoldenSource struct {
	path string
}

// NewFileGoldenSource creates a golden-set source reading from path.
func NewFileGoldenSource(path string) *FileGoldenSource {
	return &FileGoldenSource{path: path}
}

// Load reads and validates all entries. Any invalid entry fails the load;
// a partially valid golden set is never returned.
func (s *FileGoldenSource) Load() ([]GoldenSetEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden set: %w", err)
	}

	var raw []GoldenSetEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse golden set: %w", err)
	}

	entries := make([]GoldenSetEntry, 0, len(raw))
	for i, e := range raw {
		if e.Query == "" {
			return nil, fmt.Errorf("golden set entry %d: query must not be blank", i)
		}
		if !validQueryType(e.QueryType) {
			return nil, fmt.Errorf("golden set entry %d: unknown query type %q", i, e.QueryType)
		}
		judgments := make([]RelevanceJudgment, 0, len(e.Judgments))
		for _, j := range e.Judgments {
			validated, err := NewRelevanceJudgment(j.ChunkID, j.Grade)
			if err != nil {
				return nil, fmt.Errorf("golden set entry %d (%q): %w", i, e.Query, err)
			}
			judgments = append(judgments, validated)
		}
		entries = append(entries, GoldenSetEntry{
			Query:     e.Query,
			QueryType: e.QueryType,
			Judgments: judgments,
		})
	}

	return entries, nil
}

// Ensure FileGoldenSource implements GoldenSource.
var _ GoldenSource = (*FileGoldenSource)(nil)
