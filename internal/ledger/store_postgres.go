package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"printtrace/internal/ledger/models"
	riskmodels "printtrace/internal/risk/models"
	id "printtrace/pkg/domain"
	"printtrace/pkg/platform/sentinel"
)

// PostgresStore persists ledger records through database/sql. Records are
// immutable rows; the sequence index primary key rejects accidental
// double-writes at the storage layer as well.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the ledger table. Applied by migrations in
// deployment; tests apply it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_records (
    sequence_index      BIGINT           PRIMARY KEY,
    content_hash        TEXT             NOT NULL,
    prev_hash           TEXT             NOT NULL,
    fingerprint_digest  TEXT             NOT NULL,
    case_id             TEXT             NOT NULL,
    level               TEXT             NOT NULL,
    combined_score      DOUBLE PRECISION NOT NULL,
    quality_unavailable BOOLEAN          NOT NULL,
    indicator_digest    TEXT             NOT NULL DEFAULT '',
    ts                  TIMESTAMPTZ      NOT NULL
);
`

func (s *PostgresStore) Append(ctx context.Context, record models.LedgerRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_records (
			sequence_index, content_hash, prev_hash,
			fingerprint_digest, case_id, level, combined_score,
			quality_unavailable, indicator_digest, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.SequenceIndex,
		record.ContentHash,
		record.PrevHash,
		record.Verdict.FingerprintDigest.String(),
		record.Verdict.CaseID.String(),
		string(record.Verdict.Level),
		record.Verdict.CombinedScore,
		record.Verdict.QualityUnavailable,
		record.Verdict.IndicatorDigest,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Last(ctx context.Context) (models.LedgerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sequence_index, content_hash, prev_hash,
		       fingerprint_digest, case_id, level, combined_score,
		       quality_unavailable, indicator_digest, ts
		FROM ledger_records
		ORDER BY sequence_index DESC
		LIMIT 1`)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerRecord{}, sentinel.ErrNotFound
	}
	return record, err
}

func (s *PostgresStore) List(ctx context.Context, offset, limit int64) ([]models.LedgerRecord, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}
	// NULLIF turns the no-bound marker into LIMIT NULL, which postgres
	// treats as LIMIT ALL.
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence_index, content_hash, prev_hash,
		       fingerprint_digest, case_id, level, combined_score,
		       quality_unavailable, indicator_digest, ts
		FROM ledger_records
		ORDER BY sequence_index ASC
		LIMIT NULLIF($1, -1) OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger records: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.LedgerRecord, error) {
	var record models.LedgerRecord
	var digest, caseID, level string
	err := row.Scan(
		&record.SequenceIndex,
		&record.ContentHash,
		&record.PrevHash,
		&digest,
		&caseID,
		&level,
		&record.Verdict.CombinedScore,
		&record.Verdict.QualityUnavailable,
		&record.Verdict.IndicatorDigest,
		&record.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LedgerRecord{}, err
		}
		return models.LedgerRecord{}, fmt.Errorf("scan ledger record: %w", err)
	}
	record.Verdict.FingerprintDigest = id.FingerprintDigest(digest)
	record.Verdict.CaseID = id.CaseID(caseID)
	record.Verdict.Level = riskmodels.Level(level)
	return record, nil
}
