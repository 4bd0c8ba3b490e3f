package handler

import (
	"time"

	"printtrace/internal/ledger/models"
	riskmodels "printtrace/internal/risk/models"
)

// VerifyResponse is the HTTP response for GET /ledger/verify.
// mismatch_at is present only when verification failed.
type VerifyResponse struct {
	OK         bool   `json:"ok"`
	Records    int64  `json:"records"`
	MismatchAt *int64 `json:"mismatch_at,omitempty"`
}

// VerifyFromResult converts a chain walk result to the HTTP response.
func VerifyFromResult(result models.VerifyResult) *VerifyResponse {
	resp := &VerifyResponse{OK: result.OK, Records: result.Records}
	if !result.OK {
		mismatchAt := result.MismatchAt
		resp.MismatchAt = &mismatchAt
	}
	return resp
}

// RecordResponse is one exported ledger record.
type RecordResponse struct {
	SequenceIndex  int64                 `json:"sequence_index"`
	ContentHash    string                `json:"content_hash"`
	PrevHash       string                `json:"prev_hash"`
	VerdictSummary models.VerdictSummary `json:"verdict_summary"`
	Timestamp      time.Time             `json:"timestamp"`
}

// ExportResponse is the HTTP response for GET /ledger/export.
type ExportResponse struct {
	Records []RecordResponse `json:"records"`
	Offset  int64            `json:"offset"`
	Total   int64            `json:"total"`
}

// ExportFromRecords converts stored records to the HTTP response.
func ExportFromRecords(records []models.LedgerRecord, offset, total int64) *ExportResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, RecordResponse{
			SequenceIndex:  record.SequenceIndex,
			ContentHash:    record.ContentHash,
			PrevHash:       record.PrevHash,
			VerdictSummary: record.Verdict,
			Timestamp:      record.Timestamp,
		})
	}
	return &ExportResponse{Records: out, Offset: offset, Total: total}
}

// StatsResponse is the HTTP response for GET /ledger/stats.
type StatsResponse struct {
	Counts map[string]int64 `json:"verdicts_by_level"`
	Sealed bool             `json:"sealed"`
}

// StatsFromCounts converts level counters to the HTTP response.
func StatsFromCounts(counts map[riskmodels.Level]int64, sealed bool) *StatsResponse {
	out := make(map[string]int64, len(counts))
	for level, n := range counts {
		out[string(level)] = n
	}
	return &StatsResponse{Counts: out, Sealed: sealed}
}
