package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/isabelamendes/case-tecnico-oto/pkg/models"
)

// Band maps a metric cutoff to an ordinal score. Recency bands match
// metric <= cutoff (lower is better), frequency and value bands match
// metric >= cutoff (higher is better). The first matching band wins;
// anything past the last band scores 1.
type Band struct {
	Cutoff float64 `mapstructure:"cutoff" json:"cutoff"`
	Score  int     `mapstructure:"score" json:"score"`
}

// Weights are the composite-score weights for the three ordinal scores.
// They must sum to 1.0.
type Weights struct {
	R float64 `mapstructure:"r"`
	F float64 `mapstructure:"f"`
	V float64 `mapstructure:"v"`
}

// Config carries every business parameter of the pipeline. The threshold
// tables and weights are negotiable business data, so they live here rather
// than in code.
type Config struct {
	// ReferenceNow anchors the lookback window. Zero means "now" in UTC at
	// run time; tests inject a fixed date.
	ReferenceNow time.Time
	// Lookback is the trailing window over which purchases qualify.
	Lookback time.Duration
	// Threshold tables, first matching band wins, fallthrough score is 1.
	RecencyBands   []Band
	FrequencyBands []Band
	ValueBands     []Band
	Weights        Weights
	// RoundingPrecision is the number of decimal places kept on the
	// composite scores.
	RoundingPrecision int
	// Strict aborts the run on the first malformed record. When false,
	// malformed records are skipped with a logged warning.
	Strict bool
}

// DefaultLookback is five years expressed in whole days.
const DefaultLookback = 5 * 365 * 24 * time.Hour

// Default returns the business defaults: five-year lookback, the standard
// RFV threshold tables, 0.3/0.3/0.4 weights, two decimal places, strict
// input handling.
func Default() Config {
	return Config{
		Lookback: DefaultLookback,
		RecencyBands: []Band{
			{Cutoff: 180, Score: 5},
			{Cutoff: 365, Score: 4},
			{Cutoff: 730, Score: 3},
			{Cutoff: 1095, Score: 2},
		},
		FrequencyBands: []Band{
			{Cutoff: 10, Score: 5},
			{Cutoff: 7, Score: 4},
			{Cutoff: 4, Score: 3},
			{Cutoff: 2, Score: 2},
		},
		ValueBands: []Band{
			{Cutoff: 520, Score: 5},
			{Cutoff: 430, Score: 4},
			{Cutoff: 350, Score: 3},
			{Cutoff: 190, Score: 2},
		},
		Weights:           Weights{R: 0.3, F: 0.3, V: 0.4},
		RoundingPrecision: 2,
		Strict:            true,
	}
}

// Validate checks the configuration before any aggregation starts. A bad
// table or weight set invalidates every downstream score, so this fails
// fast with models.ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Lookback <= 0 {
		return fmt.Errorf("%w: lookback must be positive", models.ErrInvalidConfig)
	}
	if err := validateBands("recency_thresholds", c.RecencyBands, true); err != nil {
		return err
	}
	if err := validateBands("frequency_thresholds", c.FrequencyBands, false); err != nil {
		return err
	}
	if err := validateBands("value_thresholds", c.ValueBands, false); err != nil {
		return err
	}
	if c.Weights.R < 0 || c.Weights.F < 0 || c.Weights.V < 0 {
		return fmt.Errorf("%w: weights must be non-negative", models.ErrInvalidConfig)
	}
	if sum := c.Weights.R + c.Weights.F + c.Weights.V; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %.4f, want 1.0", models.ErrInvalidConfig, sum)
	}
	if c.RoundingPrecision < 0 {
		return fmt.Errorf("%w: rounding precision must be >= 0", models.ErrInvalidConfig)
	}
	return nil
}

// validateBands enforces totality and monotonicity: cutoffs strictly ordered
// in the table's direction, scores strictly decreasing within [1,5]. The
// implicit fallthrough score of 1 closes the table.
func validateBands(name string, bands []Band, lowerBetter bool) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: %s: empty threshold table", models.ErrInvalidConfig, name)
	}
	for i, b := range bands {
		if b.Score < 1 || b.Score > 5 {
			return fmt.Errorf("%w: %s: band %d score %d out of [1,5]", models.ErrInvalidConfig, name, i, b.Score)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.Score >= prev.Score {
			return fmt.Errorf("%w: %s: band %d score %d does not decrease", models.ErrInvalidConfig, name, i, b.Score)
		}
		ordered := b.Cutoff > prev.Cutoff
		if !lowerBetter {
			ordered = b.Cutoff < prev.Cutoff
		}
		if !ordered {
			return fmt.Errorf("%w: %s: band %d cutoff %v out of order", models.ErrInvalidConfig, name, i, b.Cutoff)
		}
	}
	return nil
}

// SetDefaults registers the recognized configuration keys with their
// business defaults, so a freshly written config file exposes the full
// parameter surface.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("lookback_days", int(d.Lookback.Hours()/24))
	v.SetDefault("rounding_precision", d.RoundingPrecision)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("weights.r", d.Weights.R)
	v.SetDefault("weights.f", d.Weights.F)
	v.SetDefault("weights.v", d.Weights.V)
	v.SetDefault("recency_thresholds", bandMaps(d.RecencyBands))
	v.SetDefault("frequency_thresholds", bandMaps(d.FrequencyBands))
	v.SetDefault("value_thresholds", bandMaps(d.ValueBands))
}

func bandMaps(bands []Band) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(bands))
	for _, b := range bands {
		out = append(out, map[string]interface{}{"cutoff": b.Cutoff, "score": b.Score})
	}
	return out
}

// FromViper builds a validated Config from the loaded configuration file
// and environment, falling back to Default for anything unset.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Default()
	if v.IsSet("lookback_days") {
		cfg.Lookback = time.Duration(v.GetInt("lookback_days")) * 24 * time.Hour
	}
	if v.IsSet("rounding_precision") {
		cfg.RoundingPrecision = v.GetInt("rounding_precision")
	}
	if v.IsSet("strict") {
		cfg.Strict = v.GetBool("strict")
	}
	if v.IsSet("weights") {
		if err := v.UnmarshalKey("weights", &cfg.Weights); err != nil {
			return Config{}, fmt.Errorf("%w: weights: %v", models.ErrInvalidConfig, err)
		}
	}
	for key, dst := range map[string]*[]Band{
		"recency_thresholds":   &cfg.RecencyBands,
		"frequency_thresholds": &cfg.FrequencyBands,
		"value_thresholds":     &cfg.ValueBands,
	} {
		if !v.IsSet(key) {
			continue
		}
		var bands []Band
		if err := v.UnmarshalKey(key, &bands); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", models.ErrInvalidConfig, key, err)
		}
		if len(bands) > 0 {
			*dst = bands
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
