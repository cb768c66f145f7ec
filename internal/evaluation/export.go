package evaluation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// timestampLayout is the file-name timestamp format. Kept stable so new runs
// sort alongside historical trend data.
const timestampLayout = "2006-01-02T15-04-05"

var aggregateHeader = []string{
	"query_type", "count",
	"recall_at_5", "recall_at_10", "recall_at_20",
	"precision_at_5", "precision_at_10", "precision_at_20",
	"mrr",
	"ndcg_at_5", "ndcg_at_10", "ndcg_at_20",
	"map",
	"hit_rate_at_5", "hit_rate_at_10", "hit_rate_at_20",
}

var detailedHeader = []string{
	"query", "query_type", "chunk_id", "score", "rank", "relevance_grade",
	"recall_at_10", "mrr", "ndcg_at_10",
}

// CSVExporter writes one aggregate and one detailed CSV file per evaluation
// run. The column layout is a compatibility contract with prior trend data.
type CSVExporter struct {
	dir string
	now func() time.Time
}

// NewCSVExporter creates an exporter writing into dir, creating it if
// needed.
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{
		dir: dir,
		now: time.Now,
	}
}

// Export writes both files for a run. Any write failure fails the export.
func (e *CSVExporter) Export(label string, results []QueryResult) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	ts := e.now().Format(timestampLayout)

	aggregatePath := filepath.Join(e.dir, fmt.Sprintf("eval-aggregate-%s-%s.csv", ts, label))
	if err := e.writeAggregate(aggregatePath, results); err != nil {
		return err
	}

	detailedPath := filepath.Join(e.dir, fmt.Sprintf("eval-detailed-%s-%s.csv", ts, label))
	if err := e.writeDetailed(detailedPath, results); err != nil {
		return err
	}

	return nil
}

// writeAggregate writes one row per query type present plus a final GLOBAL
// row, all float fields to 4 decimal places.
func (e *CSVExporter) writeAggregate(path string, results []QueryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create aggregate file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(aggregateHeader); err != nil {
		return fmt.Errorf("failed to write aggregate header: %w", err)
	}

	byType := make(map[QueryType][]QueryResult)
	for _, r := range results {
		byType[r.QueryType] = append(byType[r.QueryType], r)
	}

	for _, t := range queryTypeOrder {
		group, ok := byType[t]
		if !ok {
			continue
		}
		if err := w.Write(aggregateRow(string(t), aggregate(group))); err != nil {
			return fmt.Errorf("failed to write aggregate row: %w", err)
		}
	}
	if err := w.Write(aggregateRow("GLOBAL", aggregate(results))); err != nil {
		return fmt.Errorf("failed to write global row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush aggregate file: %w", err)
	}
	return nil
}

// writeDetailed writes one row per retrieved chunk per query. The per-query
// metric columns are populated only on each query's first row and blank
// thereafter.
func (e *CSVExporter) writeDetailed(path string, results []QueryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create detailed file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(detailedHeader); err != nil {
		return fmt.Errorf("failed to write detailed header: %w", err)
	}

	for _, r := range results {
		for i, chunk := range r.Chunks {
			recall, mrr, ndcg := "", "", ""
			if i == 0 {
				recall = formatFloat(r.RecallAt10)
				mrr = formatFloat(r.MRR)
				ndcg = formatFloat(r.NDCGAt10)
			}
			row := []string{
				r.Query,
				string(r.QueryType),
				chunk.ChunkID,
				formatFloat(chunk.Score),
				strconv.Itoa(chunk.Rank),
				strconv.Itoa(chunk.RelevanceGrade),
				recall,
				mrr,
				ndcg,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write detailed row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush detailed file: %w", err)
	}
	return nil
}

func aggregateRow(label string, agg Aggregate) []string {
	return []string{
		label,
		strconv.Itoa(agg.Count),
		formatFloat(agg.RecallAt5),
		formatFloat(agg.RecallAt10),
		formatFloat(agg.RecallAt20),
		formatFloat(agg.PrecisionAt5),
		formatFloat(agg.PrecisionAt10),
		formatFloat(agg.PrecisionAt20),
		formatFloat(agg.MRR),
		formatFloat(agg.NDCGAt5),
		formatFloat(agg.NDCGAt10),
		formatFloat(agg.NDCGAt20),
		formatFloat(agg.MAP),
		formatFloat(agg.HitRateAt5),
		formatFloat(agg.HitRateAt10),
		formatFloat(agg.HitRateAt20),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Ensure CSVExporter implements Exporter.
var _ Exporter = (*CSVExporter)(nil)
