// Package ledger implements the hash-chained audit ledger: append-only
// storage, chain verification, and the sealed safe state entered when
// corruption is detected.
package ledger

import (
	"context"

	"printtrace/internal/ledger/models"
)

// Store persists ledger records. Implementations only store and retrieve;
// hashing, linkage, and sequencing are the Service's job, which is the single
// writer.
type Store interface {
	// Append persists a fully formed record. The service guarantees records
	// arrive in sequence order.
	Append(ctx context.Context, record models.LedgerRecord) error

	// Last returns the most recent record, or sentinel.ErrNotFound on an
	// empty ledger.
	Last(ctx context.Context) (models.LedgerRecord, error)

	// List returns records ordered by sequence index, starting at offset,
	// at most limit entries. limit <= 0 means no bound.
	List(ctx context.Context, offset, limit int64) ([]models.LedgerRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
}
