package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ScoringVersion identifies the default set of heuristic constants. Bump it
// whenever a default below changes so stored rankings can be compared.
const ScoringVersion = "2025-06.1"

const (
	PoolingMax     = "max"
	PoolingSoftmax = "softmax"
)

// ScoringConfig is the single source of truth for every tunable constant used
// by tagging, hub detection and ranking composition.
type ScoringConfig struct {
	Version string        `mapstructure:"version" json:"version"`
	Pooling PoolingConfig `mapstructure:"pooling" json:"pooling"`
	Tagger  TaggerConfig  `mapstructure:"tagger" json:"tagger"`
	Ranking RankingConfig `mapstructure:"ranking" json:"ranking"`
	Hubs    HubsConfig    `mapstructure:"hubs" json:"hubs"`
}

// PoolingConfig controls how per-expansion scores collapse into one.
type PoolingConfig struct {
	Mode        string  `mapstructure:"mode" json:"mode"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
}

// TaggerConfig controls tag selection for one image.
type TaggerConfig struct {
	MinScore        float64 `mapstructure:"min_score" json:"min_score"`
	MaxTags         int     `mapstructure:"max_tags" json:"max_tags"`
	MinScoreDropPct float64 `mapstructure:"min_score_drop_pct" json:"min_score_drop_pct"`
	MinTagsFloor    int     `mapstructure:"min_tags_floor" json:"min_tags_floor"`
	FallbackK       int     `mapstructure:"fallback_k" json:"fallback_k"`
	// PhraseTemplate is a fmt pattern with one %s for the term.
	PhraseTemplate string `mapstructure:"phrase_template" json:"phrase_template"`
}

// RankingConfig holds the composer weights.
type RankingConfig struct {
	DirectMultiplier      float64          `mapstructure:"direct_multiplier" json:"direct_multiplier"`
	ZeroNoDirectFactor    float64          `mapstructure:"zero_no_direct_factor" json:"zero_no_direct_factor"`
	ZeroWithDirectFactor  float64          `mapstructure:"zero_with_direct_factor" json:"zero_with_direct_factor"`
	ZeroWithRelatedFactor float64          `mapstructure:"zero_with_related_factor" json:"zero_with_related_factor"`
	RelatedMin            float64          `mapstructure:"related_min" json:"related_min"`
	CompletenessFloor     float64          `mapstructure:"completeness_floor" json:"completeness_floor"`
	OppositePenalty       float64          `mapstructure:"opposite_penalty" json:"opposite_penalty"`
	HubPenalty            HubPenaltyConfig `mapstructure:"hub_penalty" json:"hub_penalty"`
}

// HubPenaltyConfig controls the discount applied to a hub image's base score.
type HubPenaltyConfig struct {
	ReportingFloor         float64 `mapstructure:"reporting_floor" json:"reporting_floor"`
	MarginPenaltyFactor    float64 `mapstructure:"margin_penalty_factor" json:"margin_penalty_factor"`
	FrequencyPenaltyFactor float64 `mapstructure:"frequency_penalty_factor" json:"frequency_penalty_factor"`
	UnderperformFactor     float64 `mapstructure:"underperform_factor" json:"underperform_factor"`
	CapPct                 float64 `mapstructure:"cap_pct" json:"cap_pct"`
	MinMultiplier          float64 `mapstructure:"min_multiplier" json:"min_multiplier"`
}

// HubsConfig controls offline hub detection.
type HubsConfig struct {
	TopN                int     `mapstructure:"top_n" json:"top_n"`
	ThresholdMultiplier float64 `mapstructure:"threshold_multiplier" json:"threshold_multiplier"`
}

// DefaultScoring returns the default scoring constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Version: ScoringVersion,
		Pooling: PoolingConfig{
			Mode:        PoolingSoftmax,
			Temperature: 0.05,
		},
		Tagger: TaggerConfig{
			MinScore:        0.22,
			MaxTags:         8,
			MinScoreDropPct: 0.30,
			MinTagsFloor:    3,
			FallbackK:       3,
			PhraseTemplate:  "a website design that looks %s",
		},
		Ranking: RankingConfig{
			DirectMultiplier:      10,
			ZeroNoDirectFactor:    0.05,
			ZeroWithDirectFactor:  0.10,
			ZeroWithRelatedFactor: 0.10,
			RelatedMin:            0.20,
			CompletenessFloor:     0.4,
			OppositePenalty:       0,
			HubPenalty: HubPenaltyConfig{
				ReportingFloor:         0.05,
				MarginPenaltyFactor:    1.0,
				FrequencyPenaltyFactor: 0.1,
				UnderperformFactor:     0.5,
				CapPct:                 0.2,
				MinMultiplier:          0.5,
			},
		},
		Hubs: HubsConfig{
			TopN:                40,
			ThresholdMultiplier: 1.5,
		},
	}
}

// Validate rejects values that would break the scoring invariants.
func (c *ScoringConfig) Validate() error {
	switch c.Pooling.Mode {
	case PoolingMax, PoolingSoftmax:
	default:
		return fmt.Errorf("pooling.mode must be %q or %q, got %q", PoolingMax, PoolingSoftmax, c.Pooling.Mode)
	}
	if c.Pooling.Mode == PoolingSoftmax && c.Pooling.Temperature <= 0 {
		return fmt.Errorf("pooling.temperature must be positive, got %v", c.Pooling.Temperature)
	}

	t := c.Tagger
	if t.MaxTags <= 0 {
		return fmt.Errorf("tagger.max_tags must be positive, got %d", t.MaxTags)
	}
	if t.MinTagsFloor < 0 || t.MinTagsFloor > t.MaxTags {
		return fmt.Errorf("tagger.min_tags_floor must be within [0, max_tags], got %d", t.MinTagsFloor)
	}
	if t.FallbackK <= 0 || t.FallbackK > t.MaxTags {
		return fmt.Errorf("tagger.fallback_k must be within [1, max_tags], got %d", t.FallbackK)
	}
	if t.MinScoreDropPct < 0 || t.MinScoreDropPct > 1 {
		return fmt.Errorf("tagger.min_score_drop_pct must be within [0, 1], got %v", t.MinScoreDropPct)
	}

	hp := c.Ranking.HubPenalty
	if hp.MinMultiplier < 0 || hp.MinMultiplier > 1 {
		return fmt.Errorf("ranking.hub_penalty.min_multiplier must be within [0, 1], got %v", hp.MinMultiplier)
	}
	if hp.CapPct < 0 || hp.CapPct > 1 {
		return fmt.Errorf("ranking.hub_penalty.cap_pct must be within [0, 1], got %v", hp.CapPct)
	}
	if c.Ranking.CompletenessFloor < 0 || c.Ranking.CompletenessFloor > 1 {
		return fmt.Errorf("ranking.completeness_floor must be within [0, 1], got %v", c.Ranking.CompletenessFloor)
	}

	if c.Hubs.TopN <= 0 {
		return fmt.Errorf("hubs.top_n must be positive, got %d", c.Hubs.TopN)
	}
	if c.Hubs.ThresholdMultiplier <= 0 {
		return fmt.Errorf("hubs.threshold_multiplier must be positive, got %v", c.Hubs.ThresholdMultiplier)
	}
	return nil
}

func setScoringDefaults(v *viper.Viper, d ScoringConfig) {
	v.SetDefault("scoring.version", d.Version)
	v.SetDefault("scoring.pooling.mode", d.Pooling.Mode)
	v.SetDefault("scoring.pooling.temperature", d.Pooling.Temperature)

	v.SetDefault("scoring.tagger.min_score", d.Tagger.MinScore)
	v.SetDefault("scoring.tagger.max_tags", d.Tagger.MaxTags)
	v.SetDefault("scoring.tagger.min_score_drop_pct", d.Tagger.MinScoreDropPct)
	v.SetDefault("scoring.tagger.min_tags_floor", d.Tagger.MinTagsFloor)
	v.SetDefault("scoring.tagger.fallback_k", d.Tagger.FallbackK)
	v.SetDefault("scoring.tagger.phrase_template", d.Tagger.PhraseTemplate)

	v.SetDefault("scoring.ranking.direct_multiplier", d.Ranking.DirectMultiplier)
	v.SetDefault("scoring.ranking.zero_no_direct_factor", d.Ranking.ZeroNoDirectFactor)
	v.SetDefault("scoring.ranking.zero_with_direct_factor", d.Ranking.ZeroWithDirectFactor)
	v.SetDefault("scoring.ranking.zero_with_related_factor", d.Ranking.ZeroWithRelatedFactor)
	v.SetDefault("scoring.ranking.related_min", d.Ranking.RelatedMin)
	v.SetDefault("scoring.ranking.completeness_floor", d.Ranking.CompletenessFloor)
	v.SetDefault("scoring.ranking.opposite_penalty", d.Ranking.OppositePenalty)

	hp := d.Ranking.HubPenalty
	v.SetDefault("scoring.ranking.hub_penalty.reporting_floor", hp.ReportingFloor)
	v.SetDefault("scoring.ranking.hub_penalty.margin_penalty_factor", hp.MarginPenaltyFactor)
	v.SetDefault("scoring.ranking.hub_penalty.frequency_penalty_factor", hp.FrequencyPenaltyFactor)
	v.SetDefault("scoring.ranking.hub_penalty.underperform_factor", hp.UnderperformFactor)
	v.SetDefault("scoring.ranking.hub_penalty.cap_pct", hp.CapPct)
	v.SetDefault("scoring.ranking.hub_penalty.min_multiplier", hp.MinMultiplier)

	v.SetDefault("scoring.hubs.top_n", d.Hubs.TopN)
	v.SetDefault("scoring.hubs.threshold_multiplier", d.Hubs.ThresholdMultiplier)
}
