// Package pipeline drives the sentiment scorer across every row of a
// dataset. A single bad row degrades to zero stats and the run keeps
// going; only environment failures stop a batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/quantpulse/jumpsent/internal/dataset"
	"github.com/quantpulse/jumpsent/internal/models"
	"github.com/quantpulse/jumpsent/internal/sentiment"
)

const DefaultDelimiter = '|'

// ResultColumns are appended to the dataset in this order.
var ResultColumns = []string{
	"avg_sentiment_score",
	"positive_count",
	"negative_count",
	"neutral_count",
	"total_titles",
}

// Summary is the whole-dataset aggregate reported after a run.
type Summary struct {
	TotalRows     int
	RowsWithItems int
	TotalItems    int
	FailedRows    int

	MeanScore   float64
	StdDevScore float64
	MinScore    float64
	MaxScore    float64

	PositiveRows int
	NegativeRows int
	EvenRows     int
}

type Processor struct {
	scorer    *sentiment.Scorer
	delimiter rune
	workers   int
	sink      ProgressSink
}

type Option func(*Processor)

func WithDelimiter(d rune) Option {
	return func(p *Processor) { p.delimiter = d }
}

// WithWorkers bounds the concurrent row pool. Anything below two keeps
// the strictly sequential baseline.
func WithWorkers(n int) Option {
	return func(p *Processor) { p.workers = n }
}

func WithSink(s ProgressSink) Option {
	return func(p *Processor) { p.sink = s }
}

func New(scorer *sentiment.Scorer, opts ...Option) *Processor {
	p := &Processor{
		scorer:    scorer,
		delimiter: DefaultDelimiter,
		workers:   1,
		sink:      NewLogSink(50),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run scores every row's bundle and writes the five result columns back
// onto the table. Output order matches input order 1:1 regardless of the
// worker count. limit > 0 restricts the run to the first limit rows for
// dry runs; the remaining rows keep zero result fields.
func (p *Processor) Run(ctx context.Context, table *dataset.Table, bundleColumn string, limit int) ([]models.BundleStats, Summary, error) {
	col, ok := table.Column(bundleColumn)
	if !ok {
		return nil, Summary{}, fmt.Errorf("bundle column %q not found in dataset", bundleColumn)
	}

	total := len(table.Rows)
	if limit > 0 && limit < total {
		total = limit
		slog.Info("[RowProcessor] Row limit active",
			slog.Int("limit", limit))
	}

	results := make([]models.BundleStats, total)
	var failed atomic.Int64

	if p.workers <= 1 {
		for i := 0; i < total; i++ {
			if err := ctx.Err(); err != nil {
				return nil, Summary{}, err
			}
			results[i] = p.processRow(ctx, table.Cell(i, col), i, &failed)
			p.sink.RowDone(i+1, total)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		var done atomic.Int64
		for i := 0; i < total; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Results land in index-addressed slots, so input
				// order survives any completion order.
				results[i] = p.processRow(gctx, table.Cell(i, col), i, &failed)
				p.sink.RowDone(int(done.Add(1)), total)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, Summary{}, err
		}
	}

	cols := table.EnsureColumns(ResultColumns...)
	for i, stats := range results {
		table.SetCell(i, cols[0], strconv.FormatFloat(stats.AvgScore, 'f', 6, 64))
		table.SetCell(i, cols[1], strconv.Itoa(stats.PositiveCount))
		table.SetCell(i, cols[2], strconv.Itoa(stats.NegativeCount))
		table.SetCell(i, cols[3], strconv.Itoa(stats.NeutralCount))
		table.SetCell(i, cols[4], strconv.Itoa(stats.TotalItems))
	}

	summary := p.summarize(results)
	summary.FailedRows = int(failed.Load())
	p.sink.Finished(summary)
	return results, summary, nil
}

// processRow isolates one row: any panic out of the scorer chain becomes
// a zero result for that row and the batch continues.
func (p *Processor) processRow(ctx context.Context, bundle string, row int, failed *atomic.Int64) (stats models.BundleStats) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[RowProcessor] Row processing panicked, emitting zero result",
				slog.Int("row", row),
				slog.Any("panic", r))
			failed.Add(1)
			stats = models.BundleStats{}
		}
	}()
	return sentiment.AggregateBundle(ctx, sentiment.SplitBundle(bundle, p.delimiter), p.scorer)
}

func (p *Processor) summarize(results []models.BundleStats) Summary {
	summary := Summary{TotalRows: len(results)}

	var scores []float64
	for _, stats := range results {
		if stats.TotalItems == 0 {
			continue
		}
		summary.RowsWithItems++
		summary.TotalItems += stats.TotalItems
		scores = append(scores, stats.AvgScore)

		switch {
		case stats.PositiveCount > stats.NegativeCount:
			summary.PositiveRows++
		case stats.NegativeCount > stats.PositiveCount:
			summary.NegativeRows++
		default:
			summary.EvenRows++
		}
	}

	if len(scores) > 0 {
		summary.MeanScore = stat.Mean(scores, nil)
		summary.MinScore = floats.Min(scores)
		summary.MaxScore = floats.Max(scores)
		if len(scores) > 1 {
			summary.StdDevScore = stat.StdDev(scores, nil)
		}
	}
	return summary
}

// RowResults pairs the per-row stats with the value of a key column for
// downstream persistence.
func RowResults(table *dataset.Table, keyColumn string, results []models.BundleStats) []models.RowResult {
	keyCol := -1
	if keyColumn != "" {
		if col, ok := table.Column(keyColumn); ok {
			keyCol = col
		}
	}

	rows := make([]models.RowResult, len(results))
	for i, stats := range results {
		key := strconv.Itoa(i)
		if keyCol >= 0 {
			if v := table.Cell(i, keyCol); v != "" {
				key = v
			}
		}
		rows[i] = models.RowResult{RowIndex: i, RowKey: key, BundleStats: stats}
	}
	return rows
}
