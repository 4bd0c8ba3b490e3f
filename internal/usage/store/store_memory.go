package store

import (
	"context"
	"sync"
	"time"

	"printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
	"printtrace/pkg/platform/sentinel"
)

// InMemoryStore keeps per-digest event slices guarded by a RWMutex. Suitable
// for single-node deployments and tests; use PostgresStore for durability.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.FingerprintDigest][]models.UsageEvent
}

// NewInMemoryStore creates an empty in-memory usage store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.FingerprintDigest][]models.UsageEvent)}
}

// Append stores the event with the next sequence number for its digest.
// Events equal in timestamp to the latest stored event are accepted; insertion
// order breaks the tie via the sequence number.
func (s *InMemoryStore) Append(_ context.Context, event models.UsageEvent) (models.UsageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.events[event.FingerprintDigest]
	if n := len(history); n > 0 && event.Timestamp.Before(history[n-1].Timestamp) {
		return models.UsageEvent{}, sentinel.ErrOutOfOrder
	}

	event.SequenceNumber = uint64(len(history)) + 1
	s.events[event.FingerprintDigest] = append(history, event)
	return event, nil
}

// History returns an ordered copy of the digest's events, oldest first,
// optionally bounded to a trailing window.
func (s *InMemoryStore) History(_ context.Context, digest id.FingerprintDigest, window time.Duration, now time.Time) ([]models.UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.events[digest]
	if window <= 0 {
		return append([]models.UsageEvent{}, history...), nil
	}

	cutoff := now.Add(-window)
	out := make([]models.UsageEvent, 0, len(history))
	for _, e := range history {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Stats aggregates usage counters for a digest.
func (s *InMemoryStore) Stats(_ context.Context, digest id.FingerprintDigest, now time.Time) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.events[digest]
	if len(history) == 0 {
		return models.Stats{}, nil
	}

	cases := make(map[id.CaseID]struct{})
	sectors := make(map[id.Sector]struct{})
	stats := models.Stats{
		TotalUses: len(history),
		FirstSeen: history[0].Timestamp,
		LastSeen:  history[len(history)-1].Timestamp,
	}
	day := now.Add(-24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)
	for _, e := range history {
		cases[e.CaseID] = struct{}{}
		sectors[e.Sector] = struct{}{}
		if !e.Timestamp.Before(day) {
			stats.Uses24h++
		}
		if !e.Timestamp.Before(week) {
			stats.Uses7d++
		}
	}
	stats.UniqueCases = len(cases)
	stats.UniqueSectors = len(sectors)
	return stats, nil
}
