// Package models defines the verdict types produced by the fusion engine.
package models

import (
	"time"

	id "printtrace/pkg/domain"
)

// Level classifies combined risk. Band boundaries belong to the severer band.
type Level string

const (
	LevelNormal     Level = "normal"
	LevelSuspicious Level = "suspicious"
	LevelHigh       Level = "high"
)

// Status mismatch reason codes, one per inactive registry status.
const (
	ReasonStatusMismatchDeceased = "STATUS_MISMATCH_DECEASED"
	ReasonStatusMismatchMissing  = "STATUS_MISMATCH_MISSING"
)

// RiskVerdict is the engine's output for a single usage event. Verdicts are
// deterministic: identical inputs produce byte-identical verdicts. Timestamp
// is the evaluated event's time, never the wall clock.
type RiskVerdict struct {
	FingerprintDigest  id.FingerprintDigest `json:"fingerprint_digest"`
	CaseID             id.CaseID            `json:"case_id"`
	Level              Level                `json:"level"`
	CombinedScore      float64              `json:"combined_score"`
	UsageRisk          float64              `json:"usage_risk"`
	QualityRisk        float64              `json:"quality_risk"`
	QualityUnavailable bool                 `json:"quality_unavailable"`
	StatusMismatch     bool                 `json:"status_mismatch"`
	ReasonCodes        []string             `json:"reason_codes,omitempty"`
	Explanation        string               `json:"explanation"`
	IndicatorDigest    string               `json:"indicator_digest,omitempty"`
	Timestamp          time.Time            `json:"timestamp"`
}
