// Package store persists usage events. Implementations must preserve the
// append-only, per-digest total-order invariant: an append whose timestamp
// precedes the digest's most recent stored event is rejected, and sequence
// numbers strictly increase in insertion order.
package store

import (
	"context"
	"time"

	"printtrace/internal/usage/models"
	id "printtrace/pkg/domain"
)

// Store is the usage ledger contract. Append returns the stored event with
// its assigned sequence number; backdated events fail with
// sentinel.ErrOutOfOrder and no state change.
//
// History returns an ordered immutable snapshot, oldest first. A zero window
// returns all retained history; a positive window bounds the scan to events
// at or after now-window.
type Store interface {
	Append(ctx context.Context, event models.UsageEvent) (models.UsageEvent, error)
	History(ctx context.Context, digest id.FingerprintDigest, window time.Duration, now time.Time) ([]models.UsageEvent, error)
	Stats(ctx context.Context, digest id.FingerprintDigest, now time.Time) (models.Stats, error)
}
