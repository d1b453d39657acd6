// Package analysis correlates the pipeline's average sentiment scores
// with the dataset's market-movement metric.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type CorrelationResult struct {
	N        int
	Pearson  float64
	Spearman float64
}

type Description struct {
	N      int
	Mean   float64
	StdDev float64
	Median float64
	Min    float64
	Max    float64
}

// Correlate computes Pearson and Spearman correlation over the paired
// series, dropping pairs where either value is NaN.
func Correlate(xs, ys []float64) (CorrelationResult, error) {
	if len(xs) != len(ys) {
		return CorrelationResult{}, fmt.Errorf("series length mismatch: %d vs %d", len(xs), len(ys))
	}

	x, y := dropMissing(xs, ys)
	if len(x) < 2 {
		return CorrelationResult{}, errors.New("not enough complete pairs to correlate")
	}

	return CorrelationResult{
		N:        len(x),
		Pearson:  stat.Correlation(x, y, nil),
		Spearman: stat.Correlation(rank(x), rank(y), nil),
	}, nil
}

// Describe summarizes one series, ignoring NaN entries.
func Describe(values []float64) Description {
	var clean []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Description{}
	}

	sorted := append([]float64(nil), clean...)
	sort.Float64s(sorted)

	desc := Description{
		N:      len(clean),
		Mean:   stat.Mean(clean, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
	}
	if len(clean) > 1 {
		desc.StdDev = stat.StdDev(clean, nil)
	}
	return desc
}

// Interpret labels correlation strength with the usual coarse buckets.
func Interpret(r float64) string {
	switch abs := math.Abs(r); {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.5:
		return "moderate"
	case abs >= 0.3:
		return "weak"
	default:
		return "negligible"
	}
}

// Report renders a plain-text correlation report.
func Report(res CorrelationResult, xName, yName string, xDesc, yDesc Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correlation of %s vs %s (n=%d complete pairs)\n\n", xName, yName, res.N)
	fmt.Fprintf(&b, "  Pearson r:  %+.4f (%s)\n", res.Pearson, Interpret(res.Pearson))
	fmt.Fprintf(&b, "  Spearman p: %+.4f (%s)\n\n", res.Spearman, Interpret(res.Spearman))
	writeDescription(&b, xName, xDesc)
	writeDescription(&b, yName, yDesc)
	return b.String()
}

func writeDescription(b *strings.Builder, name string, d Description) {
	fmt.Fprintf(b, "  %s (n=%d):\n", name, d.N)
	fmt.Fprintf(b, "    mean=%.4f stddev=%.4f median=%.4f min=%.4f max=%.4f\n",
		d.Mean, d.StdDev, d.Median, d.Min, d.Max)
}

func dropMissing(xs, ys []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		x = append(x, xs[i])
		y = append(y, ys[i])
	}
	return x, y
}

// rank replaces values with their ranks, averaging ties, which turns
// Pearson on the ranks into Spearman.
func rank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && values[idx[j]] == values[idx[i]] {
			j++
		}
		// ranks are 1-based; ties share the average of their span
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}
