package handler

import (
	"time"

	"printtrace/internal/risk"
)

// EvaluateResponse is the HTTP response for POST /analysis/evaluate.
type EvaluateResponse struct {
	FingerprintDigest  string        `json:"fingerprint_digest"`
	CaseID             string        `json:"case_id"`
	Level              string        `json:"level"`
	CombinedScore      float64       `json:"combined_score"`
	UsageRisk          float64       `json:"usage_risk"`
	QualityRisk        float64       `json:"quality_risk"`
	QualityUnavailable bool          `json:"quality_unavailable"`
	StatusMismatch     bool          `json:"status_mismatch"`
	ReasonCodes        []string      `json:"reason_codes"`
	Explanation        string        `json:"explanation"`
	Timestamp          time.Time     `json:"timestamp"`
	EventSequence      uint64        `json:"event_sequence"`
	Ledger             LedgerReceipt `json:"ledger"`
}

// LedgerReceipt confirms the verdict's ledger commit.
type LedgerReceipt struct {
	SequenceIndex int64  `json:"sequence_index"`
	ContentHash   string `json:"content_hash"`
}

// FromResult converts a domain EvaluateResult to an HTTP response.
func FromResult(result risk.EvaluateResult) *EvaluateResponse {
	reasons := result.Verdict.ReasonCodes
	if reasons == nil {
		reasons = []string{}
	}
	return &EvaluateResponse{
		FingerprintDigest:  string(result.Verdict.FingerprintDigest),
		CaseID:             string(result.Verdict.CaseID),
		Level:              string(result.Verdict.Level),
		CombinedScore:      result.Verdict.CombinedScore,
		UsageRisk:          result.Verdict.UsageRisk,
		QualityRisk:        result.Verdict.QualityRisk,
		QualityUnavailable: result.Verdict.QualityUnavailable,
		StatusMismatch:     result.Verdict.StatusMismatch,
		ReasonCodes:        reasons,
		Explanation:        result.Verdict.Explanation,
		Timestamp:          result.Verdict.Timestamp,
		EventSequence:      result.EventSequence,
		Ledger: LedgerReceipt{
			SequenceIndex: result.LedgerIndex,
			ContentHash:   result.LedgerHash,
		},
	}
}
