package analysis

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCorrelateLinear(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}

	res, err := Correlate(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.N != 5 {
		t.Errorf("expected 5 pairs, got %d", res.N)
	}
	if !almostEqual(res.Pearson, 1) {
		t.Errorf("expected Pearson 1, got %v", res.Pearson)
	}
	if !almostEqual(res.Spearman, 1) {
		t.Errorf("expected Spearman 1, got %v", res.Spearman)
	}
}

func TestCorrelateMonotonicNonlinear(t *testing.T) {
	// x^3 breaks linearity but keeps rank order
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{1, 8, 27, 64, 125}

	res, err := Correlate(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Spearman, 1) {
		t.Errorf("expected Spearman 1 for monotonic series, got %v", res.Spearman)
	}
	if res.Pearson >= 1 || res.Pearson < 0.9 {
		t.Errorf("expected Pearson just under 1, got %v", res.Pearson)
	}
}

func TestCorrelateInverse(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	ys := []float64{4, 3, 2, 1}

	res, err := Correlate(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Pearson, -1) || !almostEqual(res.Spearman, -1) {
		t.Errorf("expected -1/-1, got %v/%v", res.Pearson, res.Spearman)
	}
}

func TestCorrelateDropsMissingPairs(t *testing.T) {
	nan := math.NaN()
	xs := []float64{1, nan, 3, 4, 5}
	ys := []float64{2, 4, nan, 8, 10}

	res, err := Correlate(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.N != 3 {
		t.Errorf("expected 3 complete pairs, got %d", res.N)
	}
	if !almostEqual(res.Pearson, 1) {
		t.Errorf("expected Pearson 1 after dropping NaN pairs, got %v", res.Pearson)
	}
}

func TestCorrelateErrors(t *testing.T) {
	if _, err := Correlate([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected length mismatch error")
	}
	nan := math.NaN()
	if _, err := Correlate([]float64{1, nan}, []float64{nan, 2}); err == nil {
		t.Error("expected error when fewer than two complete pairs remain")
	}
}

func TestRankTies(t *testing.T) {
	ranks := rank([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if !almostEqual(ranks[i], want[i]) {
			t.Errorf("rank[%d]: expected %v, got %v", i, want[i], ranks[i])
		}
	}
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{3, 1, math.NaN(), 5, 2, 4})
	if d.N != 5 {
		t.Errorf("expected 5 values, got %d", d.N)
	}
	if !almostEqual(d.Mean, 3) {
		t.Errorf("expected mean 3, got %v", d.Mean)
	}
	if !almostEqual(d.Median, 3) {
		t.Errorf("expected median 3, got %v", d.Median)
	}
	if d.Min != 1 || d.Max != 5 {
		t.Errorf("expected min/max 1/5, got %v/%v", d.Min, d.Max)
	}
}

func TestDescribeEmpty(t *testing.T) {
	d := Describe([]float64{math.NaN()})
	if d.N != 0 {
		t.Errorf("expected empty description, got n=%d", d.N)
	}
}

func TestInterpret(t *testing.T) {
	cases := []struct {
		r    float64
		want string
	}{
		{0.85, "strong"},
		{-0.7, "strong"},
		{0.55, "moderate"},
		{-0.3, "weak"},
		{0.1, "negligible"},
	}
	for _, c := range cases {
		if got := Interpret(c.r); got != c.want {
			t.Errorf("Interpret(%v): expected %q, got %q", c.r, c.want, got)
		}
	}
}

func TestReport(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}
	res, err := Correlate(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := Report(res, "avg_sentiment_score", "jump_width", Describe(xs), Describe(ys))
	for _, want := range []string{"avg_sentiment_score", "jump_width", "Pearson", "Spearman", "strong", "n=5"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
