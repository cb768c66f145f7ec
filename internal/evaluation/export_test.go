package evaluation

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func exportFixture() []QueryResult {
	return []QueryResult{
		{
			Query:     "how do I pool connections",
			QueryType: QueryFactual,
			Chunks: []ChunkResult{
				{ChunkID: "https://docs/a#guide", Score: 0.91234, Rank: 1, RelevanceGrade: 2},
				{ChunkID: "https://docs/b#other", Score: 0.4, Rank: 2, RelevanceGrade: 0},
			},
			RecallAt10: 1.0,
			MRR:        1.0,
			NDCGAt10:   1.0,
		},
		{
			Query:     "what is a prepared statement",
			QueryType: QueryConceptual,
			Chunks: []ChunkResult{
				{ChunkID: "https://docs/c#concepts", Score: 0.7, Rank: 1, RelevanceGrade: 1},
			},
			RecallAt10: 0.5,
			MRR:        1.0,
			NDCGAt10:   0.6131,
		},
	}
}

func newTestExporter(t *testing.T) (*CSVExporter, string) {
	t.Helper()
	dir := t.TempDir()
	e := NewCSVExporter(dir)
	e.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return e, dir
}

func TestExportFileNames(t *testing.T) {
	e, dir := newTestExporter(t)

	if err := e.Export("baseline", exportFixture()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	for _, name := range []string{
		"eval-aggregate-2025-03-14T09-26-53-baseline.csv",
		"eval-detailed-2025-03-14T09-26-53-baseline.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}
}

func TestExportAggregateFile(t *testing.T) {
	e, dir := newTestExporter(t)

	if err := e.Export("baseline", exportFixture()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "eval-aggregate-2025-03-14T09-26-53-baseline.csv"))

	wantHeader := []string{
		"query_type", "count",
		"recall_at_5", "recall_at_10", "recall_at_20",
		"precision_at_5", "precision_at_10", "precision_at_20",
		"mrr",
		"ndcg_at_5", "ndcg_at_10", "ndcg_at_20",
		"map",
		"hit_rate_at_5", "hit_rate_at_10", "hit_rate_at_20",
	}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}

	// One row per query type present plus the trailing GLOBAL row.
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[1][0] != string(QueryFactual) || rows[2][0] != string(QueryConceptual) {
		t.Errorf("type rows = %q, %q", rows[1][0], rows[2][0])
	}

	global := rows[3]
	if global[0] != "GLOBAL" {
		t.Fatalf("last row label = %q, want GLOBAL", global[0])
	}
	if global[1] != "2" {
		t.Errorf("global count = %q, want 2", global[1])
	}
	// recall@10 averages 1.0 and 0.5; all floats carry 4 decimal places.
	if global[3] != "0.7500" {
		t.Errorf("global recall_at_10 = %q, want 0.7500", global[3])
	}
	if global[8] != "1.0000" {
		t.Errorf("global mrr = %q, want 1.0000", global[8])
	}
}

func TestExportDetailedFile(t *testing.T) {
	e, dir := newTestExporter(t)

	if err := e.Export("baseline", exportFixture()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "eval-detailed-2025-03-14T09-26-53-baseline.csv"))

	wantHeader := []string{
		"query", "query_type", "chunk_id", "score", "rank", "relevance_grade",
		"recall_at_10", "mrr", "ndcg_at_10",
	}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}

	// Header plus three chunk rows.
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	first := rows[1]
	if first[0] != "how do I pool connections" || first[2] != "https://docs/a#guide" {
		t.Errorf("first row = %v", first)
	}
	if first[3] != "0.9123" {
		t.Errorf("score = %q, want 0.9123", first[3])
	}
	if first[4] != "1" || first[5] != "2" {
		t.Errorf("rank/grade = %q/%q", first[4], first[5])
	}
	if first[6] != "1.0000" || first[7] != "1.0000" || first[8] != "1.0000" {
		t.Errorf("per-query metrics = %v", first[6:9])
	}

	// Metric columns are blank after each query's first row.
	second := rows[2]
	if second[6] != "" || second[7] != "" || second[8] != "" {
		t.Errorf("continuation row metrics not blank: %v", second[6:9])
	}

	third := rows[3]
	if third[0] != "what is a prepared statement" {
		t.Errorf("third row query = %q", third[0])
	}
	if third[6] != "0.5000" || third[8] != "0.6131" {
		t.Errorf("second query metrics = %v", third[6:9])
	}
}

func TestExportCreatesDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "nested", "results")
	e := NewCSVExporter(dir)
	e.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	if err := e.Export("baseline", exportFixture()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files, want 2", len(entries))
	}
}
