package pipeline

import "log/slog"

// ProgressSink receives operational progress events from a batch run.
// It is a side channel; nothing about correctness depends on it.
type ProgressSink interface {
	RowDone(processed, total int)
	Finished(summary Summary)
}

// LogSink reports progress through slog every Every rows and a summary at
// the end.
type LogSink struct {
	Every int
}

func NewLogSink(every int) *LogSink {
	if every <= 0 {
		every = 50
	}
	return &LogSink{Every: every}
}

func (l *LogSink) RowDone(processed, total int) {
	if processed%l.Every == 0 || processed == total {
		slog.Info("[RowProcessor] Processing rows",
			slog.Int("processed", processed),
			slog.Int("total", total))
	}
}

func (l *LogSink) Finished(summary Summary) {
	slog.Info("[RowProcessor] Batch run finished",
		slog.Int("total_rows", summary.TotalRows),
		slog.Int("rows_with_items", summary.RowsWithItems),
		slog.Int("total_items", summary.TotalItems),
		slog.Int("failed_rows", summary.FailedRows))

	if summary.RowsWithItems == 0 {
		return
	}
	slog.Info("[RowProcessor] Score statistics",
		slog.Float64("mean", summary.MeanScore),
		slog.Float64("stddev", summary.StdDevScore),
		slog.Float64("min", summary.MinScore),
		slog.Float64("max", summary.MaxScore))
	slog.Info("[RowProcessor] Row sentiment distribution by count majority",
		slog.Int("positive_rows", summary.PositiveRows),
		slog.Int("negative_rows", summary.NegativeRows),
		slog.Int("even_rows", summary.EvenRows))
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) RowDone(int, int) {}
func (NopSink) Finished(Summary) {}
