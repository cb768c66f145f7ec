package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/sebc-dev/alexandria/internal/search"
)

// evalDepth is the retrieval depth for evaluation queries; it matches the
// deepest metric cutoff.
const evalDepth = 20

// cutoffs are the metric cutoffs computed for every query.
var cutoffs = [3]int{5, 10, 20}

// Default pass/fail thresholds on the global averages.
const (
	DefaultRecallThreshold = 0.70
	DefaultMRRThreshold    = 0.60
)

// Thresholds are the pass/fail bounds for recall@10 and MRR.
type Thresholds struct {
	RecallAt10 float64
	MRR        float64
}

// Validate rejects thresholds outside [0,1].
func (t Thresholds) Validate() error {
	if t.RecallAt10 < 0 || t.RecallAt10 > 1 {
		return fmt.Errorf("recall@10 threshold must be in [0,1], got %v", t.RecallAt10)
	}
	if t.MRR < 0 || t.MRR > 1 {
		return fmt.Errorf("MRR threshold must be in [0,1], got %v", t.MRR)
	}
	return nil
}

// ChunkResult is one retrieved chunk in a query's ranking.
type ChunkResult struct {
	ChunkID        string
	Score          float64
	Rank           int
	RelevanceGrade int
}

// QueryResult is the per-query evaluation outcome: the ranked chunk list and
// the metrics at each cutoff. MRR and AP are computed at the full evaluation
// depth.
type QueryResult struct {
	Query     string
	QueryType QueryType
	Chunks    []ChunkResult

	RecallAt5     float64
	RecallAt10    float64
	RecallAt20    float64
	PrecisionAt5  float64
	PrecisionAt10 float64
	PrecisionAt20 float64
	MRR           float64
	NDCGAt5       float64
	NDCGAt10      float64
	NDCGAt20      float64
	AP            float64
	HitRateAt5    float64
	HitRateAt10   float64
	HitRateAt20   float64
}

// Aggregate holds metric averages over a group of query results.
type Aggregate struct {
	Count         int
	RecallAt5     float64
	RecallAt10    float64
	RecallAt20    float64
	PrecisionAt5  float64
	PrecisionAt10 float64
	PrecisionAt20 float64
	MRR           float64
	NDCGAt5       float64
	NDCGAt10      float64
	NDCGAt20      float64
	MAP           float64
	HitRateAt5    float64
	HitRateAt10   float64
	HitRateAt20   float64
}

// Summary is the outcome of one evaluation run.
type Summary struct {
	RunID         string
	Global        Aggregate
	ByType        map[QueryType]Aggregate
	Passed        bool
	FailedQueries []string
}

// Searcher runs one evaluation query through the search pipeline.
// Implementations: search.Service.
type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}

// Exporter persists the full per-query result list of a run.
// Implementations: CSVExporter.
type Exporter interface {
	Export(label string, results []QueryResult) error
}

// Runner evaluates the golden set through the search pipeline and
// aggregates ranking quality metrics.
type Runner struct {
	searcher    Searcher
	source      GoldenSource
	exporter    Exporter
	thresholds  Thresholds
	concurrency int
	logger      *slog.Logger
}

// RunnerOption is a functional option for configuring Runner.
type RunnerOption func(*Runner)

// WithThresholds overrides the default pass/fail thresholds.
func WithThresholds(t Thresholds) RunnerOption {
	return func(r *Runner) {
		r.thresholds = t
	}
}

// WithConcurrency bounds the number of golden-set queries in flight.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates an evaluation runner. Thresholds are validated; an
// out-of-range threshold fails construction.
func NewRunner(searcher Searcher, source GoldenSource, exporter Exporter, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		searcher: searcher,
		source:   source,
		exporter: exporter,
		thresholds: Thresholds{
			RecallAt10: DefaultRecallThreshold,
			MRR:        DefaultMRRThreshold,
		},
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation thresholds: %w", err)
	}
	return r, nil
}

// Evaluate runs every golden-set entry through search at the full
// evaluation depth, computes per-query metrics, aggregates, exports the
// detailed results, and returns the summary. Queries run concurrently;
// aggregation waits for all of them. Any query failure, load failure, or
// export failure aborts the run — a summary is never built from partial
// data.
func (r *Runner) Evaluate(ctx context.Context, label string) (*Summary, error) {
	entries, err := r.source.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load golden set: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("golden set is empty")
	}

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation pool: %w", err)
	}
	defer pool.Release()

	results := make([]QueryResult, len(entries))
	errs := make([]error, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		if ctx.Err() != nil {
			// Caller abandoned the run; stop submitting further entries.
			break
		}
		wg.Add(1)
		i, entry := i, entry
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = r.evaluateEntry(ctx, entry)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to submit evaluation query: %w", submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("evaluation query %q failed: %w", entries[i].Query, err)
		}
	}

	summary := r.summarize(results)
	summary.RunID = uuid.NewString()

	if err := r.exporter.Export(label, results); err != nil {
		return nil, fmt.Errorf("failed to export evaluation results: %w", err)
	}

	r.logger.Info("evaluation run complete",
		"run_id", summary.RunID,
		"label", label,
		"queries", len(results),
		"recall_at_10", summary.Global.RecallAt10,
		"mrr", summary.Global.MRR,
		"passed", summary.Passed,
	)

	return summary, nil
}

// evaluateEntry runs one query and computes its metrics.
func (r *Runner) evaluateEntry(ctx context.Context, entry GoldenSetEntry) (QueryResult, error) {
	req, err := search.NewRequest(entry.Query, evalDepth)
	if err != nil {
		return QueryResult{}, err
	}

	hits, err := r.searcher.Search(ctx, req)
	if err != nil {
		return QueryResult{}, err
	}

	chunks := make([]ChunkResult, len(hits))
	resolvedIDs := make([]string, len(hits))
	for i, hit := range hits {
		id := hit.SourceURL + "#" + hit.SectionPath
		resolved, grade := resolveGrade(id, entry.Judgments)
		chunks[i] = ChunkResult{
			ChunkID:        id,
			Score:          hit.RerankScore,
			Rank:           i + 1,
			RelevanceGrade: grade,
		}
		resolvedIDs[i] = resolved
	}

	result := QueryResult{
		Query:     entry.Query,
		QueryType: entry.QueryType,
		Chunks:    chunks,
	}

	m5 := ComputeAll(resolvedIDs, entry.Judgments, cutoffs[0])
	m10 := ComputeAll(resolvedIDs, entry.Judgments, cutoffs[1])
	m20 := ComputeAll(resolvedIDs, entry.Judgments, cutoffs[2])

	result.RecallAt5, result.RecallAt10, result.RecallAt20 = m5.Recall, m10.Recall, m20.Recall
	result.PrecisionAt5, result.PrecisionAt10, result.PrecisionAt20 = m5.Precision, m10.Precision, m20.Precision
	result.NDCGAt5, result.NDCGAt10, result.NDCGAt20 = m5.NDCG, m10.NDCG, m20.NDCG
	result.HitRateAt5, result.HitRateAt10, result.HitRateAt20 = m5.HitRate, m10.HitRate, m20.HitRate
	result.MRR = m20.MRR
	result.AP = m20.AP

	return result, nil
}

// resolveGrade maps a retrieved chunk identifier to its judged grade. Exact
// matches win; otherwise substring containment in either direction matches
// near-duplicate identifiers. The fallback is a deliberate leniency and a
// known source of evaluation noise when one section path prefixes another.
func resolveGrade(id string, judgments []RelevanceJudgment) (string, int) {
	for _, j := range judgments {
		if j.ChunkID == id {
			return j.ChunkID, j.Grade
		}
	}
	for _, j := range judgments {
		if strings.Contains(id, j.ChunkID) || strings.Contains(j.ChunkID, id) {
			return j.ChunkID, j.Grade
		}
	}
	return id, 0
}

// summarize aggregates per-query results globally and per query type, and
// applies the pass/fail thresholds. A query fails when its own recall@10 or
// MRR is below threshold; the run passes iff the global averages meet both.
func (r *Runner) summarize(results []QueryResult) *Summary {
	summary := &Summary{
		Global: aggregate(results),
		ByType: make(map[QueryType]Aggregate),
	}

	byType := make(map[QueryType][]QueryResult)
	for _, res := range results {
		byType[res.QueryType] = append(byType[res.QueryType], res)
		if res.RecallAt10 < r.thresholds.RecallAt10 || res.MRR < r.thresholds.MRR {
			summary.FailedQueries = append(summary.FailedQueries, res.Query)
		}
	}
	for t, group := range byType {
		summary.ByType[t] = aggregate(group)
	}

	summary.Passed = summary.Global.RecallAt10 >= r.thresholds.RecallAt10 &&
		summary.Global.MRR >= r.thresholds.MRR

	return summary
}

// aggregate averages every metric over a group of results.
func aggregate(results []QueryResult) Aggregate {
	agg := Aggregate{Count: len(results)}
	if len(results) == 0 {
		return agg
	}

	for _, r := range results {
		agg.RecallAt5 += r.RecallAt5
		agg.RecallAt10 += r.RecallAt10
		agg.RecallAt20 += r.RecallAt20
		agg.PrecisionAt5 += r.PrecisionAt5
		agg.PrecisionAt10 += r.PrecisionAt10
		agg.PrecisionAt20 += r.PrecisionAt20
		agg.MRR += r.MRR
		agg.NDCGAt5 += r.NDCGAt5
		agg.NDCGAt10 += r.NDCGAt10
		agg.NDCGAt20 += r.NDCGAt20
		agg.MAP += r.AP
		agg.HitRateAt5 += r.HitRateAt5
		agg.HitRateAt10 += r.HitRateAt10
		agg.HitRateAt20 += r.HitRateAt20
	}

	n := float64(len(results))
	agg.RecallAt5 /= n
	agg.RecallAt10 /= n
	agg.RecallAt20 /= n
	agg.PrecisionAt5 /= n
	agg.PrecisionAt10 /= n
	agg.PrecisionAt20 /= n
	agg.MRR /= n
	agg.NDCGAt5 /= n
	agg.NDCGAt10 /= n
	agg.NDCGAt20 /= n
	agg.MAP /= n
	agg.HitRateAt5 /= n
	agg.HitRateAt10 /= n
	agg.HitRateAt20 /= n

	return agg
}
