package calculator

import (
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/isabelamendes/case-tecnico-oto/pkg/config"
	"github.com/isabelamendes/case-tecnico-oto/pkg/models"
)

var testNow = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

func testCfg() config.Config {
	cfg := config.Default()
	cfg.ReferenceNow = testNow
	return cfg
}

func purchase(id string, daysAgo int, amount float64) models.PurchaseRecord {
	return models.PurchaseRecord{
		CustomerID:   id,
		PurchaseDate: testNow.AddDate(0, 0, -daysAgo),
		Amount:       amount,
	}
}

func TestScoreBoundaries(t *testing.T) {
	cfg := testCfg()
	cases := []struct {
		name    string
		metrics models.CustomerMetrics
		r, f, v int
	}{
		{"recency at cutoff", models.CustomerMetrics{RecencyDays: 180, Frequency: 1, TotalValue: 0}, 5, 1, 1},
		{"recency past cutoff", models.CustomerMetrics{RecencyDays: 181, Frequency: 1, TotalValue: 0}, 4, 1, 1},
		{"frequency at cutoff", models.CustomerMetrics{RecencyDays: 2000, Frequency: 10, TotalValue: 0}, 1, 5, 1},
		{"frequency below cutoff", models.CustomerMetrics{RecencyDays: 2000, Frequency: 9, TotalValue: 0}, 1, 4, 1},
		{"value at cutoff", models.CustomerMetrics{RecencyDays: 2000, Frequency: 1, TotalValue: 520}, 1, 1, 5},
		{"value below cutoff", models.CustomerMetrics{RecencyDays: 2000, Frequency: 1, TotalValue: 519.99}, 1, 1, 4},
		{"all worst", models.CustomerMetrics{RecencyDays: 1096, Frequency: 1, TotalValue: 189.99}, 1, 1, 1},
		{"all best", models.CustomerMetrics{RecencyDays: 0, Frequency: 50, TotalValue: 10000}, 5, 5, 5},
	}
	for _, tc := range cases {
		s := Score(tc.metrics, cfg)
		if s.RScore != tc.r || s.FScore != tc.f || s.VScore != tc.v {
			t.Fatalf("%s: got (%d,%d,%d), want (%d,%d,%d)",
				tc.name, s.RScore, s.FScore, s.VScore, tc.r, tc.f, tc.v)
		}
	}
}

func TestScoreTotalityAndMonotonicity(t *testing.T) {
	cfg := testCfg()

	prev := 6
	for recency := 0; recency <= 1500; recency++ {
		got := scoreLowerBetter(float64(recency), cfg.RecencyBands)
		if got < 1 || got > 5 {
			t.Fatalf("recency %d: score %d out of [1,5]", recency, got)
		}
		if got > prev {
			t.Fatalf("recency %d: score %d increased as metric worsened", recency, got)
		}
		prev = got
	}

	prev = 0
	for freq := 1; freq <= 30; freq++ {
		got := scoreHigherBetter(float64(freq), cfg.FrequencyBands)
		if got < 1 || got > 5 {
			t.Fatalf("frequency %d: score %d out of [1,5]", freq, got)
		}
		if got < prev {
			t.Fatalf("frequency %d: score %d decreased as metric improved", freq, got)
		}
		prev = got
	}

	prev = 0
	for cents := 0; cents <= 60000; cents += 50 {
		v := float64(cents) / 100
		got := scoreHigherBetter(v, cfg.ValueBands)
		if got < 1 || got > 5 {
			t.Fatalf("value %.2f: score %d out of [1,5]", v, got)
		}
		if got < prev {
			t.Fatalf("value %.2f: score %d decreased as metric improved", v, got)
		}
		prev = got
	}
}

func TestComposeSegmentCode(t *testing.T) {
	cfg := testCfg()
	s := models.CustomerScore{RScore: 5, FScore: 3, VScore: 4}
	seg := Compose(s, cfg)
	if seg.SegmentCode != "534" {
		t.Fatalf("got segment code %q, want %q", seg.SegmentCode, "534")
	}
}

func TestComposeWeightedArithmetic(t *testing.T) {
	cfg := testCfg()
	seg := Compose(models.CustomerScore{RScore: 5, FScore: 4, VScore: 3}, cfg)
	// 5*0.3 + 4*0.3 + 3*0.4 = 3.90
	if seg.ScoreWeighted != 3.9 {
		t.Fatalf("got weighted %v, want 3.9", seg.ScoreWeighted)
	}
	if seg.ScoreMean != 4.0 {
		t.Fatalf("got mean %v, want 4.0", seg.ScoreMean)
	}
}

func TestRoundHalfUp(t *testing.T) {
	// 1.25 is exact in binary, so this separates half-up from half-even.
	if got := roundTo(1.25, 1); got != 1.3 {
		t.Fatalf("roundTo(1.25, 1) = %v, want 1.3", got)
	}
	if got := roundTo(2.344, 2); got != 2.34 {
		t.Fatalf("roundTo(2.344, 2) = %v, want 2.34", got)
	}
	if got := roundTo(2.345, 2); got != 2.35 {
		t.Fatalf("roundTo(2.345, 2) = %v, want 2.35", got)
	}
}

func TestAggregateWindowBoundaries(t *testing.T) {
	cfg := testCfg()
	cfg.Lookback = 100 * 24 * time.Hour

	records := []models.PurchaseRecord{
		purchase("edge", 100, 10), // exactly at the lower bound: included
		purchase("old", 101, 10),  // one day past: excluded
		purchase("today", 0, 10),  // at the now bound: included, recency 0
	}
	metrics, err := Aggregate(records, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("got %d customers, want 2: %+v", len(metrics), metrics)
	}
	if metrics[0].CustomerID != "edge" || metrics[0].RecencyDays != 100 {
		t.Fatalf("edge customer wrong: %+v", metrics[0])
	}
	if metrics[1].CustomerID != "today" || metrics[1].RecencyDays != 0 {
		t.Fatalf("today customer wrong: %+v", metrics[1])
	}
}

func TestAggregateExcludesFutureDates(t *testing.T) {
	cfg := testCfg()
	records := []models.PurchaseRecord{
		purchase("x", -3, 10), // dated after reference now
	}
	metrics, err := Aggregate(records, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("future-dated purchase should not qualify, got %+v", metrics)
	}
}

func TestAggregateStrictRejectsMalformed(t *testing.T) {
	cfg := testCfg()
	bad := []models.PurchaseRecord{
		{CustomerID: "", PurchaseDate: testNow, Amount: 10},
		{CustomerID: "a", PurchaseDate: testNow, Amount: -1},
		{CustomerID: "a", Amount: 10}, // zero date
	}
	for i, r := range bad {
		_, err := Aggregate([]models.PurchaseRecord{r}, cfg)
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("record %d: got %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestAggregateLenientSkipsMalformed(t *testing.T) {
	cfg := testCfg()
	cfg.Strict = false
	out := Log.Out
	Log.SetOutput(io.Discard)
	defer Log.SetOutput(out)

	records := []models.PurchaseRecord{
		{CustomerID: "a", PurchaseDate: testNow, Amount: -1},
		purchase("b", 10, 100),
	}
	metrics, err := Aggregate(records, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 1 || metrics[0].CustomerID != "b" {
		t.Fatalf("got %+v, want only customer b", metrics)
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testCfg()
	records := []models.PurchaseRecord{
		purchase("A", 10, 100),
		purchase("A", 200, 500),
		purchase("B", 2000, 50), // outside the 5-year window
	}
	segments, err := Run(records, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1: %+v", len(segments), segments)
	}
	a := segments[0]
	if a.CustomerID != "A" {
		t.Fatalf("got customer %q, want A", a.CustomerID)
	}
	if a.RecencyDays != 10 || a.Frequency != 2 || a.TotalValue != 600 {
		t.Fatalf("metrics wrong: %+v", a.CustomerMetrics)
	}
	// recency 10 -> 5, frequency 2 -> 2, value 600 -> 5
	if a.SegmentCode != "525" {
		t.Fatalf("got segment code %q, want 525", a.SegmentCode)
	}
	// 5*0.3 + 2*0.3 + 5*0.4 = 4.10
	if a.ScoreWeighted != 4.1 {
		t.Fatalf("got weighted %v, want 4.1", a.ScoreWeighted)
	}
}

func TestRunDeterministicTieOrder(t *testing.T) {
	cfg := testCfg()
	// Identical behavior, identical weighted score: tie.
	records := []models.PurchaseRecord{
		purchase("zeta", 10, 100),
		purchase("alpha", 10, 100),
	}
	first, err := Run(records, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 || first[0].ScoreWeighted != first[1].ScoreWeighted {
		t.Fatalf("expected a two-way tie, got %+v", first)
	}
	if first[0].CustomerID != "alpha" {
		t.Fatalf("ties keep customer-id order, got %q first", first[0].CustomerID)
	}
	for i := 0; i < 5; i++ {
		again, err := Run(records, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nwant %+v\ngot  %+v", i, first, again)
		}
	}
}

func TestRunSortsByWeightedDescending(t *testing.T) {
	cfg := testCfg()
	records := []models.PurchaseRecord{
		purchase("low", 1200, 50),
		purchase("high", 5, 1000),
		purchase("high", 6, 1000),
		purchase("high", 7, 1000),
		purchase("high", 8, 1000),
		purchase("mid", 300, 400),
	}
	segments, err := Run(records, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i-1].ScoreWeighted < segments[i].ScoreWeighted {
			t.Fatalf("not sorted descending at %d: %+v", i, segments)
		}
	}
	if segments[0].CustomerID != "high" || segments[len(segments)-1].CustomerID != "low" {
		t.Fatalf("unexpected ranking: %+v", segments)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testCfg()
	cfg.Weights = config.Weights{R: 0.5, F: 0.3, V: 0.3}
	_, err := Run([]models.PurchaseRecord{purchase("a", 1, 1)}, cfg)
	if !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
}
