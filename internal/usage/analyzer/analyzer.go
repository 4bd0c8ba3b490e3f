// Package analyzer computes frequency, cross-context reuse, and reactivation
// anomalies from a fingerprint's usage history. This is pure domain logic -
// no I/O, no side effects. The history passed in must already include the
// event under analysis as its final element.
package analyzer

import (
	"time"

	"printtrace/internal/usage/models"
)

// Config carries the thresholds and flag weights. Zero values are not usable;
// construct from platform config.
type Config struct {
	FrequencyThreshold int
	FrequencyWindow    time.Duration
	DormancyGap        time.Duration

	FrequencyWeight    float64
	ReuseWeight        float64
	ReactivationWeight float64
}

// Analyze evaluates the digest's history snapshot and returns the pattern
// result. Rules:
//
//   - frequency: more than FrequencyThreshold events within the trailing
//     FrequencyWindow, current event inclusive
//   - reuse: two or more unrelated cases anywhere in retained history
//     (different sector, or different case namespace within one sector)
//   - reactivation: gap from the previous event to the current one exceeds
//     DormancyGap
//
// On the first-ever event for a digest, reuse and reactivation are false by
// definition. UsageRisk is the weighted sum of fired flags, capped at 100.
// Reason codes are emitted in canonical order: frequency, reuse, reactivation.
func Analyze(cfg Config, history []models.UsageEvent) models.PatternResult {
	var result models.PatternResult
	if len(history) == 0 {
		return result
	}

	current := history[len(history)-1]

	result.FrequencyFlag = countWithin(history, current.Timestamp, cfg.FrequencyWindow) > cfg.FrequencyThreshold

	if len(history) > 1 {
		result.ReuseFlag = hasUnrelatedCases(history)

		previous := history[len(history)-2]
		result.ReactivationFlag = current.Timestamp.Sub(previous.Timestamp) > cfg.DormancyGap
	}

	if result.FrequencyFlag {
		result.UsageRisk += cfg.FrequencyWeight
		result.ReasonCodes = append(result.ReasonCodes, models.ReasonHighFrequency)
	}
	if result.ReuseFlag {
		result.UsageRisk += cfg.ReuseWeight
		result.ReasonCodes = append(result.ReasonCodes, models.ReasonCrossCaseReuse)
	}
	if result.ReactivationFlag {
		result.UsageRisk += cfg.ReactivationWeight
		result.ReasonCodes = append(result.ReasonCodes, models.ReasonDormantReactivation)
	}
	if result.UsageRisk > 100 {
		result.UsageRisk = 100
	}
	return result
}

// countWithin counts events in the trailing window ending at ref, inclusive
// at both ends. History is ordered, so scan from the tail and stop early.
func countWithin(history []models.UsageEvent, ref time.Time, window time.Duration) int {
	cutoff := ref.Add(-window)
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Timestamp.Before(cutoff) {
			break
		}
		count++
	}
	return count
}

// hasUnrelatedCases reports whether any two events in history belong to
// unrelated cases. Relatedness (same sector and namespace) is an
// equivalence, so comparing every event against the first finds any
// unrelated pair.
func hasUnrelatedCases(history []models.UsageEvent) bool {
	first := history[0]
	for _, e := range history[1:] {
		if e.UnrelatedTo(first) {
			return true
		}
	}
	return false
}
