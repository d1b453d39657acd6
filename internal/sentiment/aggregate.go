package sentiment

import (
	"context"
	"iter"

	"github.com/quantpulse/jumpsent/internal/models"
)

// AggregateBundle scores every item in a bundle and folds the readings
// into per-bundle statistics. An empty bundle returns the zero stats
// without touching the scorer. The count invariant holds for every input:
// positive + negative + neutral == total.
func AggregateBundle(ctx context.Context, items iter.Seq[string], scorer *Scorer) models.BundleStats {
	var stats models.BundleStats
	var sum float64

	for item := range items {
		reading := scorer.Score(ctx, item)
		sum += reading.Score

		switch reading.Label {
		case models.LabelPositive:
			stats.PositiveCount++
		case models.LabelNegative:
			stats.NegativeCount++
		default:
			stats.NeutralCount++
		}
		stats.TotalItems++
	}

	if stats.TotalItems > 0 {
		stats.AvgScore = sum / float64(stats.TotalItems)
	}
	return stats
}
