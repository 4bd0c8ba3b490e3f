package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
	"printtrace/pkg/platform/sentinel"
)

// PostgresStore persists usage events in PostgreSQL via pgx. The per-digest
// tail row is locked during append so the no-backdating check and sequence
// assignment are atomic even without the service-level serialization.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed usage store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the usage event table. Applied by migrations in
// deployment; tests apply it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS usage_events (
    fingerprint_digest TEXT        NOT NULL,
    sequence_number    BIGINT      NOT NULL,
    case_id            TEXT        NOT NULL,
    sector             TEXT        NOT NULL,
    ts                 TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (fingerprint_digest, sequence_number)
);
CREATE INDEX IF NOT EXISTS idx_usage_events_ts ON usage_events (fingerprint_digest, ts);
`

func (s *PostgresStore) Append(ctx context.Context, event models.UsageEvent) (models.UsageEvent, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.UsageEvent{}, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var lastSeq uint64
	var lastTS time.Time
	err = tx.QueryRow(ctx, `
		SELECT sequence_number, ts FROM usage_events
		WHERE fingerprint_digest = $1
		ORDER BY sequence_number DESC
		LIMIT 1
		FOR UPDATE`,
		event.FingerprintDigest.String(),
	).Scan(&lastSeq, &lastTS)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		lastSeq = 0
	case err != nil:
		return models.UsageEvent{}, fmt.Errorf("read digest tail: %w", err)
	default:
		if event.Timestamp.Before(lastTS) {
			return models.UsageEvent{}, sentinel.ErrOutOfOrder
		}
	}

	event.SequenceNumber = lastSeq + 1
	_, err = tx.Exec(ctx, `
		INSERT INTO usage_events (fingerprint_digest, sequence_number, case_id, sector, ts)
		VALUES ($1, $2, $3, $4, $5)`,
		event.FingerprintDigest.String(), event.SequenceNumber,
		event.CaseID.String(), event.Sector.String(), event.Timestamp,
	)
	if err != nil {
		return models.UsageEvent{}, fmt.Errorf("insert usage event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.UsageEvent{}, fmt.Errorf("commit usage event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) History(ctx context.Context, digest id.FingerprintDigest, window time.Duration, now time.Time) ([]models.UsageEvent, error) {
	query := `
		SELECT fingerprint_digest, sequence_number, case_id, sector, ts
		FROM usage_events
		WHERE fingerprint_digest = $1`
	args := []any{digest.String()}
	if window > 0 {
		query += ` AND ts >= $2`
		args = append(args, now.Add(-window))
	}
	query += ` ORDER BY ts, sequence_number`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.UsageEvent
	for rows.Next() {
		var e models.UsageEvent
		var digestStr, caseStr, sectorStr string
		if err := rows.Scan(&digestStr, &e.SequenceNumber, &caseStr, &sectorStr, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		e.FingerprintDigest = id.FingerprintDigest(digestStr)
		e.CaseID = id.CaseID(caseStr)
		e.Sector = id.Sector(sectorStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, digest id.FingerprintDigest, now time.Time) (models.Stats, error) {
	var stats models.Stats
	var firstSeen, lastSeen *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT case_id),
		       COUNT(DISTINCT sector),
		       COUNT(*) FILTER (WHERE ts >= $2),
		       COUNT(*) FILTER (WHERE ts >= $3),
		       MIN(ts),
		       MAX(ts)
		FROM usage_events
		WHERE fingerprint_digest = $1`,
		digest.String(), now.Add(-24*time.Hour), now.Add(-7*24*time.Hour),
	).Scan(&stats.TotalUses, &stats.UniqueCases, &stats.UniqueSectors,
		&stats.Uses24h, &stats.Uses7d, &firstSeen, &lastSeen)
	if err != nil {
		return models.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	if firstSeen != nil {
		stats.FirstSeen = *firstSeen
	}
	if lastSeen != nil {
		stats.LastSeen = *lastSeen
	}
	return stats, nil
}
