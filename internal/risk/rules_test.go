package risk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitymodels "printtrace/internal/identity/models"
	qualitymodels "printtrace/internal/quality/models"
	riskmodels "printtrace/internal/risk/models"
	usagemodels "printtrace/internal/usage/models"
)

func defaultFusion() FusionConfig {
	return FusionConfig{
		UsageWeight:   0.4,
		QualityWeight: 0.6,
		SuspiciousAt:  40,
		HighAt:        70,
	}
}

func baseInput() FusionInput {
	return FusionInput{
		FingerprintDigest: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		CaseID:            "FOR-2024-1",
		EventTime:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFuseCombination(t *testing.T) {
	t.Run("weighted combination of usage and quality", func(t *testing.T) {
		input := baseInput()
		input.Usage = usagemodels.PatternResult{UsageRisk: 50}
		input.Quality = qualitymodels.Interpretation{QualityRisk: 30}

		verdict := Fuse(defaultFusion(), input)
		// 0.4*50 + 0.6*30 = 38
		assert.InDelta(t, 38.0, verdict.CombinedScore, 1e-9)
		assert.Equal(t, riskmodels.LevelNormal, verdict.Level)
		assert.Equal(t, 50.0, verdict.UsageRisk)
		assert.Equal(t, 30.0, verdict.QualityRisk)
	})

	t.Run("band boundaries belong to the severer band", func(t *testing.T) {
		cases := []struct {
			score float64
			want  riskmodels.Level
		}{
			{0, riskmodels.LevelNormal},
			{39.999, riskmodels.LevelNormal},
			{40, riskmodels.LevelSuspicious},
			{69.999, riskmodels.LevelSuspicious},
			{70, riskmodels.LevelHigh},
			{100, riskmodels.LevelHigh},
		}
		for _, tc := range cases {
			input := baseInput()
			input.Usage = usagemodels.PatternResult{UsageRisk: tc.score}
			input.Quality = qualitymodels.Interpretation{QualityRisk: tc.score}
			verdict := Fuse(defaultFusion(), input)
			assert.Equal(t, tc.want, verdict.Level, "score %v", tc.score)
		}
	})
}

func TestFuseQualityUnavailable(t *testing.T) {
	input := baseInput()
	input.Usage = usagemodels.PatternResult{UsageRisk: 45, ReasonCodes: []string{usagemodels.ReasonCrossCaseReuse}}
	input.Quality = qualitymodels.Interpretation{Unavailable: true}

	verdict := Fuse(defaultFusion(), input)
	assert.True(t, verdict.QualityUnavailable)
	assert.Equal(t, 45.0, verdict.CombinedScore)
	assert.Zero(t, verdict.QualityRisk)
	// degraded confidence never escalates severity on its own
	assert.Equal(t, riskmodels.LevelSuspicious, verdict.Level)
	assert.Contains(t, verdict.Explanation, "degraded confidence")
}

func TestFuseStatusMismatch(t *testing.T) {
	t.Run("deceased person with later event forces high", func(t *testing.T) {
		// deceased 2024-01-15, event 2024-01-18
		input := baseInput()
		input.EventTime = time.Date(2024, 1, 18, 9, 0, 0, 0, time.UTC)
		input.Identity = &identitymodels.IdentityStatus{
			Status:            identitymodels.StatusDeceased,
			LastKnownActivity: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}

		verdict := Fuse(defaultFusion(), input)
		assert.Equal(t, riskmodels.LevelHigh, verdict.Level)
		assert.True(t, verdict.StatusMismatch)
		assert.Contains(t, verdict.ReasonCodes, riskmodels.ReasonStatusMismatchDeceased)
		// the combined score itself is reported unmodified
		assert.Zero(t, verdict.CombinedScore)
	})

	t.Run("missing person produces its own reason code", func(t *testing.T) {
		input := baseInput()
		input.Identity = &identitymodels.IdentityStatus{
			Status:            identitymodels.StatusMissing,
			LastKnownActivity: input.EventTime.Add(-48 * time.Hour),
		}
		verdict := Fuse(defaultFusion(), input)
		assert.Equal(t, riskmodels.LevelHigh, verdict.Level)
		assert.Contains(t, verdict.ReasonCodes, riskmodels.ReasonStatusMismatchMissing)
	})

	t.Run("event on the boundary date does not mismatch", func(t *testing.T) {
		input := baseInput()
		input.Identity = &identitymodels.IdentityStatus{
			Status:            identitymodels.StatusDeceased,
			LastKnownActivity: input.EventTime,
		}
		verdict := Fuse(defaultFusion(), input)
		assert.False(t, verdict.StatusMismatch)
		assert.Equal(t, riskmodels.LevelNormal, verdict.Level)
	})

	t.Run("alive person never mismatches", func(t *testing.T) {
		input := baseInput()
		input.Identity = &identitymodels.IdentityStatus{
			Status:            identitymodels.StatusAlive,
			LastKnownActivity: input.EventTime.Add(-365 * 24 * time.Hour),
		}
		verdict := Fuse(defaultFusion(), input)
		assert.False(t, verdict.StatusMismatch)
	})
}

func TestFuseFrequencySpikeNeverNormal(t *testing.T) {
	// an alive person with a frequency flag and moderate quality risk must
	// land at least in the suspicious band
	input := baseInput()
	input.Usage = usagemodels.PatternResult{
		FrequencyFlag: true,
		UsageRisk:     30,
		ReasonCodes:   []string{usagemodels.ReasonHighFrequency},
	}
	input.Quality = qualitymodels.Interpretation{QualityRisk: 50}
	input.Identity = &identitymodels.IdentityStatus{Status: identitymodels.StatusAlive}

	verdict := Fuse(defaultFusion(), input)
	assert.NotEqual(t, riskmodels.LevelNormal, verdict.Level)
	assert.Contains(t, verdict.ReasonCodes, usagemodels.ReasonHighFrequency)
}

func TestFuseReasonOrder(t *testing.T) {
	input := baseInput()
	input.Usage = usagemodels.PatternResult{
		UsageRisk:   70,
		ReasonCodes: []string{usagemodels.ReasonHighFrequency, usagemodels.ReasonCrossCaseReuse},
	}
	input.Quality = qualitymodels.Interpretation{
		QualityRisk: 80,
		ReasonCodes: []string{qualitymodels.ReasonLowLiveness},
	}
	input.Identity = &identitymodels.IdentityStatus{
		Status:            identitymodels.StatusDeceased,
		LastKnownActivity: input.EventTime.Add(-time.Hour),
	}

	verdict := Fuse(defaultFusion(), input)
	assert.Equal(t, []string{
		usagemodels.ReasonHighFrequency,
		usagemodels.ReasonCrossCaseReuse,
		riskmodels.ReasonStatusMismatchDeceased,
		qualitymodels.ReasonLowLiveness,
	}, verdict.ReasonCodes)
}

func TestFuseDeterminism(t *testing.T) {
	input := baseInput()
	input.Usage = usagemodels.PatternResult{
		UsageRisk:   70,
		ReasonCodes: []string{usagemodels.ReasonCrossCaseReuse},
	}
	input.Quality = qualitymodels.Interpretation{
		QualityRisk:     55.5,
		ReasonCodes:     []string{qualitymodels.ReasonTextureAnomaly},
		IndicatorDigest: "deadbeef",
	}

	first := Fuse(defaultFusion(), input)
	second := Fuse(defaultFusion(), input)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, first.Explanation, second.Explanation)
}
