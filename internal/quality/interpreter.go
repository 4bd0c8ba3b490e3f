// Package quality turns classifier indicators into a quality risk score.
// Interpretation is pure: same indicator and config, same result.
package quality

import (
	"printtrace/internal/quality/models"
)

// Config carries the interpreter weights and thresholds. The three axis
// weights must sum to 1.0; platform config validates that at startup.
type Config struct {
	LivenessWeight    float64
	ClarityWeight     float64
	TextureWeight     float64
	DistortionPenalty float64
	ReasonThreshold   float64
}

// Interpret scores an indicator. Each axis contributes its deficit (1-value)
// times its weight; the weighted sum is clamped to [0,1] and scaled to 0..100.
// Every distinct distortion flag adds a fixed penalty on top. The total is
// capped at 100. Reason codes fire per axis when that axis's deficit exceeds
// the configured threshold.
func Interpret(cfg Config, indicator models.QualityIndicator) (models.Interpretation, error) {
	if err := indicator.Validate(); err != nil {
		return models.Interpretation{}, err
	}

	livenessDeficit := 1 - indicator.Liveness
	clarityDeficit := 1 - indicator.RidgeClarity
	textureDeficit := 1 - indicator.Texture

	weighted := cfg.LivenessWeight*livenessDeficit +
		cfg.ClarityWeight*clarityDeficit +
		cfg.TextureWeight*textureDeficit
	if weighted < 0 {
		weighted = 0
	}
	if weighted > 1 {
		weighted = 1
	}

	risk := 100 * weighted
	risk += cfg.DistortionPenalty * float64(len(indicator.DistinctDistortions()))
	if risk > 100 {
		risk = 100
	}

	var reasons []string
	if livenessDeficit > cfg.ReasonThreshold {
		reasons = append(reasons, models.ReasonLowLiveness)
	}
	if clarityDeficit > cfg.ReasonThreshold {
		reasons = append(reasons, models.ReasonRidgeDegradation)
	}
	if textureDeficit > cfg.ReasonThreshold {
		reasons = append(reasons, models.ReasonTextureAnomaly)
	}

	return models.Interpretation{
		QualityRisk: risk,
		ReasonCodes: reasons,
	}, nil
}

// Unavailable returns the sentinel interpretation used when the classifier
// cannot be reached. It never defaults quality risk to zero; the fusion layer
// must treat the verdict as usage-only.
func Unavailable() models.Interpretation {
	return models.Interpretation{Unavailable: true}
}
