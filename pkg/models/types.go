package models

import (
	"errors"
	"time"
)

// Sentinel errors surfaced by the pipeline. Callers match with errors.Is.
var (
	// ErrInvalidInput marks a malformed purchase record: missing customer id,
	// negative amount or missing date.
	ErrInvalidInput = errors.New("invalid input record")
	// ErrInvalidConfig marks a threshold table or weight set that would
	// invalidate every downstream score.
	ErrInvalidConfig = errors.New("invalid configuration")
)

/*
LOAD → raw rows as read from the purchase log.
*/

// PurchaseRecord is a single transaction from the purchase log.
type PurchaseRecord struct {
	CustomerID   string
	PurchaseDate time.Time
	Amount       float64
}

/*
COMPUTE → per-customer rows produced by each pipeline stage.
*/

// CustomerMetrics holds the raw behavioral metrics of one customer over the
// lookback window.
type CustomerMetrics struct {
	CustomerID  string  `json:"customer_id"`
	RecencyDays int     `json:"recency_days"`
	Frequency   int     `json:"frequency"`
	TotalValue  float64 `json:"total_value"`
}

// CustomerScore adds the three ordinal scores (1..5) derived from the
// metrics through the configured threshold tables.
type CustomerScore struct {
	CustomerMetrics
	RScore int `json:"r_score"`
	FScore int `json:"f_score"`
	VScore int `json:"v_score"`
}

// CustomerSegment is the terminal output row: the scores plus the
// concatenated R-F-V segment code and the two composite indicators.
type CustomerSegment struct {
	CustomerScore
	SegmentCode   string  `json:"segment_code"`
	ScoreMean     float64 `json:"score_mean"`
	ScoreWeighted float64 `json:"score_weighted"`
}
