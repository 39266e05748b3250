package calculator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/isabelamendes/case-tecnico-oto/pkg/config"
	"github.com/isabelamendes/case-tecnico-oto/pkg/models"
)

// Log receives the warnings emitted for skipped records in lenient mode.
var Log = logrus.StandardLogger()

// Run executes the full pipeline: aggregate purchases per customer, map the
// metrics to ordinal scores, derive the composites, and rank by weighted
// score descending. The configuration is validated before any record is
// touched. The sort is stable, so ties keep the customer-id order produced
// by the aggregation stage and repeated runs yield identical output.
func Run(records []models.PurchaseRecord, cfg config.Config) ([]models.CustomerSegment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	metrics, err := Aggregate(records, cfg)
	if err != nil {
		return nil, err
	}
	segments := make([]models.CustomerSegment, 0, len(metrics))
	for _, m := range metrics {
		segments = append(segments, Compose(Score(m, cfg), cfg))
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].ScoreWeighted > segments[j].ScoreWeighted
	})
	return segments, nil
}

// Aggregate filters records to the lookback window [now-lookback, now]
// (both bounds inclusive) and produces one CustomerMetrics per distinct
// customer with at least one qualifying purchase, ordered by customer id.
// Future-dated records fall outside the window and are excluded.
//
// A record with an empty customer id, negative amount or missing date is
// invalid: strict mode aborts with models.ErrInvalidInput, lenient mode
// skips it with a warning.
func Aggregate(records []models.PurchaseRecord, cfg config.Config) ([]models.CustomerMetrics, error) {
	now := cfg.ReferenceNow
	if now.IsZero() {
		now = time.Now().UTC()
	}
	windowStart := now.Add(-cfg.Lookback)

	type acc struct {
		count int
		total float64
		last  time.Time
	}
	byCustomer := map[string]*acc{}
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			if cfg.Strict {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			Log.Warnf("skipping record %d (customer %q): %v", i, r.CustomerID, err)
			continue
		}
		if r.PurchaseDate.Before(windowStart) || r.PurchaseDate.After(now) {
			continue
		}
		a := byCustomer[r.CustomerID]
		if a == nil {
			a = &acc{}
			byCustomer[r.CustomerID] = a
		}
		a.count++
		a.total += r.Amount
		if r.PurchaseDate.After(a.last) {
			a.last = r.PurchaseDate
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.CustomerMetrics, 0, len(ids))
	for _, id := range ids {
		a := byCustomer[id]
		out = append(out, models.CustomerMetrics{
			CustomerID:  id,
			RecencyDays: int(now.Sub(a.last).Hours() / 24),
			Frequency:   a.count,
			TotalValue:  a.total,
		})
	}
	return out, nil
}

func validateRecord(r models.PurchaseRecord) error {
	switch {
	case r.CustomerID == "":
		return fmt.Errorf("%w: missing customer id", models.ErrInvalidInput)
	case r.Amount < 0:
		return fmt.Errorf("%w: negative amount %.2f", models.ErrInvalidInput, r.Amount)
	case r.PurchaseDate.IsZero():
		return fmt.Errorf("%w: missing purchase date", models.ErrInvalidInput)
	}
	return nil
}

// Score maps each metric to its ordinal score through the configured bands.
// Pure per-customer, no shared state.
func Score(m models.CustomerMetrics, cfg config.Config) models.CustomerScore {
	return models.CustomerScore{
		CustomerMetrics: m,
		RScore:          scoreLowerBetter(float64(m.RecencyDays), cfg.RecencyBands),
		FScore:          scoreHigherBetter(float64(m.Frequency), cfg.FrequencyBands),
		VScore:          scoreHigherBetter(m.TotalValue, cfg.ValueBands),
	}
}

// scoreLowerBetter walks bands with inclusive upper cutoffs; first match
// wins, fallthrough is 1.
func scoreLowerBetter(v float64, bands []config.Band) int {
	for _, b := range bands {
		if v <= b.Cutoff {
			return b.Score
		}
	}
	return 1
}

// scoreHigherBetter walks bands with inclusive lower cutoffs.
func scoreHigherBetter(v float64, bands []config.Band) int {
	for _, b := range bands {
		if v >= b.Cutoff {
			return b.Score
		}
	}
	return 1
}

// Compose derives the segment code and the two composite indicators from a
// scored customer.
func Compose(s models.CustomerScore, cfg config.Config) models.CustomerSegment {
	w := cfg.Weights
	mean := float64(s.RScore+s.FScore+s.VScore) / 3
	weighted := float64(s.RScore)*w.R + float64(s.FScore)*w.F + float64(s.VScore)*w.V
	return models.CustomerSegment{
		CustomerScore: s,
		SegmentCode:   fmt.Sprintf("%d%d%d", s.RScore, s.FScore, s.VScore),
		ScoreMean:     roundTo(mean, cfg.RoundingPrecision),
		ScoreWeighted: roundTo(weighted, cfg.RoundingPrecision),
	}
}

// roundTo rounds half-up (away from zero) to n decimal places. Scores are
// non-negative, so half-up and half-away-from-zero coincide.
func roundTo(v float64, n int) float64 {
	p := math.Pow10(n)
	return math.Round(v*p) / p
}
