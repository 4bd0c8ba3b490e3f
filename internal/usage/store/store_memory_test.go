package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
	"printtrace/pkg/platform/sentinel"
)

const (
	testDigestA = id.FingerprintDigest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testDigestB = id.FingerprintDigest("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	base  time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}
func (s *InMemoryStoreSuite) event(digest id.FingerprintDigest, caseID string, at time.Time) models.UsageEvent {
	return models.UsageEvent{
		FingerprintDigest: digest,
		CaseID:            id.CaseID(caseID),
		Sector:            id.SectorForensic,
		Timestamp:         at,
	}
}

func (s *InMemoryStoreSuite) TestAppend() {
	s.Run("assigns increasing sequence numbers per digest", func() {
		e1, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base))
		s.Require().NoError(err)
		e2, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base.Add(time.Hour)))
		s.Require().NoError(err)
		e3, err := s.store.Append(s.ctx, s.event(testDigestB, "FOR-2", s.base))
		s.Require().NoError(err)

		s.Equal(uint64(1), e1.SequenceNumber)
		s.Equal(uint64(2), e2.SequenceNumber)
		s.Equal(uint64(1), e3.SequenceNumber, "sequence numbers are per digest")
	})

	s.Run("rejects backdated events with no state change", func() {
		s.store = NewInMemoryStore()
		_, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base))
		s.Require().NoError(err)

		_, err = s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base.Add(-time.Minute)))
		s.Require().ErrorIs(err, sentinel.ErrOutOfOrder)

		history, err := s.store.History(s.ctx, testDigestA, 0, s.base)
		s.Require().NoError(err)
		s.Len(history, 1)
	})

	s.Run("accepts equal timestamps, ties broken by sequence", func() {
		s.store = NewInMemoryStore()
		_, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base))
		s.Require().NoError(err)
		e2, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-2", s.base))
		s.Require().NoError(err)
		s.Equal(uint64(2), e2.SequenceNumber)
	})
}

func (s *InMemoryStoreSuite) TestHistory() {
	for i := range 5 {
		_, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base.Add(time.Duration(i)*time.Hour)))
		s.Require().NoError(err)
	}

	s.Run("returns all events oldest first", func() {
		history, err := s.store.History(s.ctx, testDigestA, 0, s.base.Add(5*time.Hour))
		s.Require().NoError(err)
		s.Require().Len(history, 5)
		for i := 1; i < len(history); i++ {
			s.True(history[i].Timestamp.After(history[i-1].Timestamp))
		}
	})

	s.Run("window bounds the scan inclusively", func() {
		now := s.base.Add(4 * time.Hour)
		history, err := s.store.History(s.ctx, testDigestA, 2*time.Hour, now)
		s.Require().NoError(err)
		s.Len(history, 3, "events at exactly now-window are included")
	})

	s.Run("unknown digest yields empty history", func() {
		history, err := s.store.History(s.ctx, id.FingerprintDigest("cccccccccccccccccccccccccccccccc"), 0, s.base)
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("returned slice is a copy", func() {
		history, err := s.store.History(s.ctx, testDigestA, 0, s.base)
		s.Require().NoError(err)
		history[0].CaseID = "tampered"

		again, err := s.store.History(s.ctx, testDigestA, 0, s.base)
		s.Require().NoError(err)
		s.Equal(id.CaseID("FOR-1"), again[0].CaseID)
	})
}

func (s *InMemoryStoreSuite) TestStats() {
	now := s.base.Add(40 * 24 * time.Hour)

	_, err := s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", s.base))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, models.UsageEvent{
		FingerprintDigest: testDigestA,
		CaseID:            "HOSP-9",
		Sector:            id.SectorHospital,
		Timestamp:         now.Add(-2 * 24 * time.Hour),
	})
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.event(testDigestA, "FOR-1", now.Add(-time.Hour)))
	s.Require().NoError(err)

	stats, err := s.store.Stats(s.ctx, testDigestA, now)
	s.Require().NoError(err)

	s.Equal(3, stats.TotalUses)
	s.Equal(2, stats.UniqueCases)
	s.Equal(2, stats.UniqueSectors)
	s.Equal(1, stats.Uses24h)
	s.Equal(2, stats.Uses7d)
	s.Equal(s.base, stats.FirstSeen)
	s.Equal(now.Add(-time.Hour), stats.LastSeen)
}
