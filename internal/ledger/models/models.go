// Package models defines the hash-chained audit ledger record types. Records
// never contain raw biometric data; the only sample-derived field is the
// keyed indicator digest.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	riskmodels "printtrace/internal/risk/models"
	id "printtrace/pkg/domain"
)

// GenesisHash anchors the chain: the first record's PrevHash. The value is a
// fixed constant, not a computed hash, so an empty ledger has exactly one
// valid continuation.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// VerdictSummary is the subset of a verdict that enters the ledger and the
// external export.
type VerdictSummary struct {
	FingerprintDigest  id.FingerprintDigest `json:"fingerprint_digest"`
	CaseID             id.CaseID            `json:"case_id"`
	Level              riskmodels.Level     `json:"level"`
	CombinedScore      float64              `json:"combined_score"`
	QualityUnavailable bool                 `json:"quality_unavailable"`
	IndicatorDigest    string               `json:"indicator_digest,omitempty"`
}

// LedgerRecord is one link in the chain. SequenceIndex starts at 0;
// record N's PrevHash equals record N-1's ContentHash, and record 0's
// PrevHash equals GenesisHash.
type LedgerRecord struct {
	SequenceIndex int64          `json:"sequence_index"`
	ContentHash   string         `json:"content_hash"`
	PrevHash      string         `json:"prev_hash"`
	Verdict       VerdictSummary `json:"verdict_summary"`
	Timestamp     time.Time      `json:"timestamp"`
}

// ComputeContentHash derives the record's content hash from its canonical
// fields. PrevHash is part of the input, which makes any upstream tamper
// propagate to every later hash.
func ComputeContentHash(seq int64, prevHash string, v VerdictSummary, ts time.Time) string {
	fields := []string{
		strconv.FormatInt(seq, 10),
		prevHash,
		string(v.FingerprintDigest),
		string(v.CaseID),
		string(v.Level),
		strconv.FormatFloat(v.CombinedScore, 'f', 6, 64),
		strconv.FormatBool(v.QualityUnavailable),
		v.IndicatorDigest,
		ts.UTC().Format(time.RFC3339Nano),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

// Recompute returns the content hash the record's fields demand. A stored
// record is intact iff Recompute equals its persisted ContentHash.
func (r LedgerRecord) Recompute() string {
	return ComputeContentHash(r.SequenceIndex, r.PrevHash, r.Verdict, r.Timestamp)
}

// VerifyResult reports a chain walk. MismatchAt is the sequence index of the
// first corrupted record, or -1 when the chain is intact.
type VerifyResult struct {
	OK         bool  `json:"ok"`
	MismatchAt int64 `json:"mismatch_at"`
	Records    int64 `json:"records"`
}
