//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"printtrace/internal/ledger"
	"printtrace/internal/ledger/models"
	riskmodels "printtrace/internal/risk/models"
	id "printtrace/pkg/domain"
	"printtrace/pkg/platform/sentinel"
	"printtrace/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
	ctx      context.Context
	base     time.Time
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.ExecContext(context.Background(), ledger.Schema)
	s.Require().NoError(err)
	s.store = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "ledger_records"))
}

func (s *PostgresLedgerSuite) appendChain(n int) []models.LedgerRecord {
	records := make([]models.LedgerRecord, 0, n)
	prev := models.GenesisHash
	for i := 0; i < n; i++ {
		verdict := models.VerdictSummary{
			FingerprintDigest: id.FingerprintDigest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
			CaseID:            id.CaseID("FOR-1"),
			Level:             riskmodels.LevelNormal,
			CombinedScore:     float64(10 * i),
		}
		record := models.LedgerRecord{
			SequenceIndex: int64(i),
			PrevHash:      prev,
			Verdict:       verdict,
			Timestamp:     s.base.Add(time.Duration(i) * time.Minute),
		}
		record.ContentHash = record.Recompute()
		s.Require().NoError(s.store.Append(s.ctx, record))
		records = append(records, record)
		prev = record.ContentHash
	}
	return records
}

func (s *PostgresLedgerSuite) TestLastOnEmptyLedger() {
	_, err := s.store.Last(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestAppendAndLast() {
	records := s.appendChain(3)

	last, err := s.store.Last(s.ctx)
	s.Require().NoError(err)
	s.Equal(records[2].SequenceIndex, last.SequenceIndex)
	s.Equal(records[2].ContentHash, last.ContentHash)
	s.Equal(records[2].PrevHash, last.PrevHash)
	s.Equal(records[2].Verdict, last.Verdict)
	s.True(records[2].Timestamp.Equal(last.Timestamp))
}

func (s *PostgresLedgerSuite) TestRoundTripPreservesHashInput() {
	records := s.appendChain(1)

	stored, err := s.store.Last(s.ctx)
	s.Require().NoError(err)
	s.Equal(records[0].ContentHash, stored.Recompute(),
		"stored fields must recompute to the original hash")
}

func (s *PostgresLedgerSuite) TestListPagination() {
	s.appendChain(10)

	page, err := s.store.List(s.ctx, 3, 4)
	s.Require().NoError(err)
	s.Require().Len(page, 4)
	s.Equal(int64(3), page[0].SequenceIndex)
	s.Equal(int64(6), page[3].SequenceIndex)

	all, err := s.store.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	s.Len(all, 10, "non-positive limit means no bound")

	tail, err := s.store.List(s.ctx, 8, 100)
	s.Require().NoError(err)
	s.Len(tail, 2)
}

func (s *PostgresLedgerSuite) TestCount() {
	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	s.appendChain(5)

	count, err = s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(5), count)
}
