package ranking

import "github.com/timmy/shotrank/internal/config"

// HubStats is the per-image hub summary produced by offline hub detection.
type HubStats struct {
	HubCount                  int
	HubScore                  float64
	AvgCosineSimilarity       float64
	AvgCosineSimilarityMargin float64
}

// HubMultiplier returns the factor applied to an image's base score.
// Images without stats, or with a hub score at or below the reporting floor,
// get 1. The result is never below cfg.MinMultiplier.
func HubMultiplier(baseScore float64, hub *HubStats, cfg config.HubPenaltyConfig) float64 {
	if hub == nil || hub.HubScore <= cfg.ReportingFloor {
		return 1
	}

	marginPenalty := hub.AvgCosineSimilarityMargin * cfg.MarginPenaltyFactor
	if marginPenalty < 0 {
		marginPenalty = 0
	}

	frequencyPenalty := hub.HubScore * cfg.FrequencyPenaltyFactor
	if hub.AvgCosineSimilarityMargin < 0 {
		// Popular overall but below the per-query average.
		frequencyPenalty *= cfg.UnderperformFactor
	}

	absolutePenalty := marginPenalty + frequencyPenalty

	penaltyPct := cfg.CapPct
	if baseScore > 0 {
		penaltyPct = absolutePenalty / baseScore
		if penaltyPct > cfg.CapPct {
			penaltyPct = cfg.CapPct
		}
	}
	if penaltyPct < 0 {
		penaltyPct = 0
	}

	multiplier := 1 - penaltyPct
	if multiplier < cfg.MinMultiplier {
		multiplier = cfg.MinMultiplier
	}
	return multiplier
}
