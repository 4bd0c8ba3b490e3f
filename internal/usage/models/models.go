// Package models holds the usage-ledger domain types. Events are immutable
// once stored and append-only per fingerprint digest.
package models

import (
	"time"

	id "printtrace/pkg/domain"
)

// UsageEvent is a timestamped record of a fingerprint digest appearing in a
// sector/case context. Events for one digest are totally ordered by
// (timestamp, sequence_number) with ties broken by sequence number.
type UsageEvent struct {
	FingerprintDigest id.FingerprintDigest
	CaseID            id.CaseID
	Sector            id.Sector
	Timestamp         time.Time
	SequenceNumber    uint64
}

// UnrelatedTo reports whether two events belong to unrelated cases: different
// sector, or a different case namespace within the same sector.
func (e UsageEvent) UnrelatedTo(other UsageEvent) bool {
	if e.Sector != other.Sector {
		return true
	}
	return e.CaseID.Namespace() != other.CaseID.Namespace()
}

// PatternResult is the Usage Pattern Analyzer output for one event-history
// snapshot. UsageRisk ascends with risk: 0 safest, 100 riskiest.
type PatternResult struct {
	FrequencyFlag    bool
	ReuseFlag        bool
	ReactivationFlag bool
	UsageRisk        float64
	ReasonCodes      []string
}

// Analyzer reason codes, in canonical emission order.
const (
	ReasonHighFrequency       = "HIGH_FREQUENCY"
	ReasonCrossCaseReuse      = "CROSS_CASE_REUSE"
	ReasonDormantReactivation = "DORMANT_REACTIVATION"
)

// Stats aggregates a digest's recorded usage for investigator display.
type Stats struct {
	TotalUses     int
	UniqueCases   int
	UniqueSectors int
	Uses24h       int
	Uses7d        int
	FirstSeen     time.Time
	LastSeen      time.Time
}
