package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
)

func defaultConfig() Config {
	return Config{
		FrequencyThreshold: 5,
		FrequencyWindow:    24 * time.Hour,
		DormancyGap:        30 * 24 * time.Hour,
		FrequencyWeight:    30,
		ReuseWeight:        40,
		ReactivationWeight: 30,
	}
}

func event(caseID string, sector id.Sector, at time.Time) models.UsageEvent {
	return models.UsageEvent{
		FingerprintDigest: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		CaseID:            id.CaseID(caseID),
		Sector:            sector,
		Timestamp:         at,
	}
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFrequencyFlag(t *testing.T) {
	t.Run("fires above threshold within trailing window", func(t *testing.T) {
		history := make([]models.UsageEvent, 0, 6)
		for i := range 6 {
			history = append(history, event("C2", id.SectorForensic, base.Add(time.Duration(i)*time.Hour)))
		}
		result := Analyze(defaultConfig(), history)
		assert.True(t, result.FrequencyFlag)
		assert.Equal(t, []string{models.ReasonHighFrequency}, result.ReasonCodes)
	})

	t.Run("exactly threshold does not fire", func(t *testing.T) {
		history := make([]models.UsageEvent, 0, 5)
		for i := range 5 {
			history = append(history, event("C2", id.SectorForensic, base.Add(time.Duration(i)*time.Hour)))
		}
		result := Analyze(defaultConfig(), history)
		assert.False(t, result.FrequencyFlag)
	})

	t.Run("events outside the window do not count", func(t *testing.T) {
		history := []models.UsageEvent{
			event("C2", id.SectorForensic, base.Add(-30*time.Hour)),
			event("C2", id.SectorForensic, base.Add(-28*time.Hour)),
			event("C2", id.SectorForensic, base.Add(-26*time.Hour)),
			event("C2", id.SectorForensic, base.Add(-2*time.Hour)),
			event("C2", id.SectorForensic, base.Add(-time.Hour)),
			event("C2", id.SectorForensic, base),
		}
		result := Analyze(defaultConfig(), history)
		assert.False(t, result.FrequencyFlag)
	})
}

func TestReuseFlag(t *testing.T) {
	t.Run("different sectors are unrelated", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-1", id.SectorForensic, base),
			event("HOSP-1", id.SectorHospital, base.Add(time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		assert.True(t, result.ReuseFlag)
		assert.Contains(t, result.ReasonCodes, models.ReasonCrossCaseReuse)
	})

	t.Run("different namespaces within one sector are unrelated", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-2024-1", id.SectorForensic, base),
			event("COLD-1988-3", id.SectorForensic, base.Add(time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		assert.True(t, result.ReuseFlag)
	})

	t.Run("same namespace across sectors is still unrelated", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-2024-1", id.SectorForensic, base),
			event("FOR-2024-1", id.SectorBorder, base.Add(time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		assert.True(t, result.ReuseFlag)
	})

	t.Run("same namespace and sector are related", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-2024-1", id.SectorForensic, base),
			event("FOR-2024-2", id.SectorForensic, base.Add(time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		assert.False(t, result.ReuseFlag)
	})

	t.Run("false on first-ever event", func(t *testing.T) {
		history := []models.UsageEvent{event("FOR-1", id.SectorForensic, base)}
		result := Analyze(defaultConfig(), history)
		assert.False(t, result.ReuseFlag)
	})
}

func TestReactivationFlag(t *testing.T) {
	t.Run("fires when gap exceeds dormancy threshold", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-1", id.SectorForensic, base),
			event("FOR-1", id.SectorForensic, base.Add(31*24*time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		assert.True(t, result.ReactivationFlag)
		assert.Contains(t, result.ReasonCodes, models.ReasonDormantReactivation)
	})

	t.Run("gap of exactly the threshold does not fire", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-1", id.SectorForensic, base),
			event("FOR-1", id.SectorForensic, base.Add(30*24*time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		assert.False(t, result.ReactivationFlag)
	})

	t.Run("false on first-ever event regardless of gap", func(t *testing.T) {
		history := []models.UsageEvent{event("FOR-1", id.SectorForensic, base)}
		result := Analyze(defaultConfig(), history)
		assert.False(t, result.ReactivationFlag)
	})
}

func TestUsageRiskWeighting(t *testing.T) {
	t.Run("weights accumulate per fired flag", func(t *testing.T) {
		history := []models.UsageEvent{
			event("FOR-1", id.SectorForensic, base),
			event("HOSP-1", id.SectorHospital, base.Add(31*24*time.Hour)),
		}
		result := Analyze(defaultConfig(), history)
		// reuse (40) + reactivation (30)
		assert.Equal(t, 70.0, result.UsageRisk)
		assert.Equal(t, []string{models.ReasonCrossCaseReuse, models.ReasonDormantReactivation}, result.ReasonCodes)
	})

	t.Run("risk is capped at 100", func(t *testing.T) {
		// A single event in the window trips a zero threshold, so all three
		// flags can fire together despite the dormancy gap.
		cfg := defaultConfig()
		cfg.FrequencyThreshold = 0
		cfg.FrequencyWeight = 60
		cfg.ReuseWeight = 60
		cfg.ReactivationWeight = 60

		history := []models.UsageEvent{
			event("FOR-1", id.SectorForensic, base.Add(-40*24*time.Hour)),
			event("HOSP-1", id.SectorHospital, base),
		}
		result := Analyze(cfg, history)
		assert.True(t, result.FrequencyFlag)
		assert.True(t, result.ReuseFlag)
		assert.True(t, result.ReactivationFlag)
		assert.Equal(t, 100.0, result.UsageRisk)
	})

	t.Run("reason codes keep canonical order", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.FrequencyThreshold = 0

		history := []models.UsageEvent{
			event("FOR-1", id.SectorForensic, base.Add(-40*24*time.Hour)),
			event("HOSP-1", id.SectorHospital, base),
		}
		result := Analyze(cfg, history)
		assert.Equal(t, []string{
			models.ReasonHighFrequency,
			models.ReasonCrossCaseReuse,
			models.ReasonDormantReactivation,
		}, result.ReasonCodes)
	})
}

func TestEmptyHistory(t *testing.T) {
	result := Analyze(defaultConfig(), nil)
	assert.Zero(t, result.UsageRisk)
	assert.Empty(t, result.ReasonCodes)
}
