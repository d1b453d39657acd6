package models

import "math"

// probSumTolerance is how far a classifier's probability triple may drift
// from summing to exactly 1.0 before it is rejected as malformed.
const probSumTolerance = 0.01

type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Probabilities is the distribution a classifier assigns to one text.
type Probabilities struct {
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Positive float64 `json:"positive"`
}

func (p Probabilities) Sum() float64 {
	return p.Negative + p.Neutral + p.Positive
}

// Valid reports whether the triple is a usable distribution: no negative
// components and a sum within tolerance of 1.0.
func (p Probabilities) Valid() bool {
	if p.Negative < 0 || p.Neutral < 0 || p.Positive < 0 {
		return false
	}
	return math.Abs(p.Sum()-1.0) <= probSumTolerance
}

// Reading is the scored sentiment of a single text item.
type Reading struct {
	Score float64 `json:"score"`
	Label Label   `json:"label"`
}

// BundleStats aggregates the readings of every item in one bundle.
// For an empty bundle all fields are zero; that is the defined default,
// not an error.
type BundleStats struct {
	AvgScore      float64 `json:"avg_sentiment_score" dynamodbav:"avg_sentiment_score"`
	PositiveCount int     `json:"positive_count"      dynamodbav:"positive_count"`
	NegativeCount int     `json:"negative_count"      dynamodbav:"negative_count"`
	NeutralCount  int     `json:"neutral_count"       dynamodbav:"neutral_count"`
	TotalItems    int     `json:"total_titles"        dynamodbav:"total_titles"`
}

// RowResult ties one row's aggregate stats to its position and key column
// for persistence and streaming.
type RowResult struct {
	RowIndex int    `json:"row_index" dynamodbav:"row_index"`
	RowKey   string `json:"row_key"   dynamodbav:"row_key"`
	BundleStats
}
