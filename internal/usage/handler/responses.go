package handler

import (
	"time"

	"printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
)

// EventResponse is one usage event in the history response.
type EventResponse struct {
	CaseID         string    `json:"case_id"`
	Sector         string    `json:"sector"`
	Timestamp      time.Time `json:"timestamp"`
	SequenceNumber uint64    `json:"sequence_number"`
}

// HistoryResponse is the HTTP response for GET /usage/{digest}/history.
type HistoryResponse struct {
	FingerprintDigest string          `json:"fingerprint_digest"`
	Events            []EventResponse `json:"events"`
}

// HistoryFromEvents converts stored events to the HTTP response.
func HistoryFromEvents(digest id.FingerprintDigest, events []models.UsageEvent) *HistoryResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			CaseID:         string(e.CaseID),
			Sector:         e.Sector.String(),
			Timestamp:      e.Timestamp,
			SequenceNumber: e.SequenceNumber,
		})
	}
	return &HistoryResponse{
		FingerprintDigest: string(digest),
		Events:            out,
	}
}

// StatsResponse is the HTTP response for GET /usage/{digest}/stats.
type StatsResponse struct {
	FingerprintDigest string     `json:"fingerprint_digest"`
	TotalUses         int        `json:"total_uses"`
	UniqueCases       int        `json:"unique_cases"`
	UniqueSectors     int        `json:"unique_sectors"`
	Uses24h           int        `json:"uses_24h"`
	Uses7d            int        `json:"uses_7d"`
	FirstSeen         *time.Time `json:"first_seen,omitempty"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
}

// StatsFromModel converts aggregated stats to the HTTP response.
func StatsFromModel(digest id.FingerprintDigest, stats models.Stats) *StatsResponse {
	resp := &StatsResponse{
		FingerprintDigest: string(digest),
		TotalUses:         stats.TotalUses,
		UniqueCases:       stats.UniqueCases,
		UniqueSectors:     stats.UniqueSectors,
		Uses24h:           stats.Uses24h,
		Uses7d:            stats.Uses7d,
	}
	if !stats.FirstSeen.IsZero() {
		resp.FirstSeen = &stats.FirstSeen
		resp.LastSeen = &stats.LastSeen
	}
	return resp
}
