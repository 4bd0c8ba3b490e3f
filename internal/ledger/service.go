package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"printtrace/internal/ledger/alert"
	ledgermetrics "printtrace/internal/ledger/metrics"
	"printtrace/internal/ledger/models"
	"printtrace/internal/ledger/stats"
	riskmodels "printtrace/internal/risk/models"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/sentinel"
)

// verifyBatchSize bounds memory during a chain walk.
const verifyBatchSize = 500

// Service owns the hash chain. All appends go through a single mutex so
// sequence assignment and linkage are race-free even across goroutines; the
// stores are storage only.
//
// Once VerifyChain detects a corrupted record the service seals: every later
// append fails with a chain integrity error until the process is restarted
// after operator intervention. Sealing is deliberately not undoable at
// runtime.
type Service struct {
	store   Store
	counter stats.Counter
	alerts  *alert.Publisher
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics

	mu       sync.Mutex
	loaded   bool
	nextSeq  int64
	headHash string

	sealed atomic.Bool
}

func NewService(store Store, counter stats.Counter, alerts *alert.Publisher, logger *slog.Logger, metrics *ledgermetrics.Metrics) *Service {
	return &Service{
		store:   store,
		counter: counter,
		alerts:  alerts,
		logger:  logger,
		metrics: metrics,
	}
}

// Append writes the verdict summary as the next chain record and returns the
// stored record; its ContentHash is the caller's commit confirmation.
func (s *Service) Append(ctx context.Context, summary models.VerdictSummary, ts time.Time) (models.LedgerRecord, error) {
	if s.sealed.Load() {
		return models.LedgerRecord{}, dErrors.Wrap(sentinel.ErrSealed,
			dErrors.CodeChainIntegrity, "ledger is sealed after a chain integrity failure")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadHead(ctx); err != nil {
		return models.LedgerRecord{}, err
	}

	record := models.LedgerRecord{
		SequenceIndex: s.nextSeq,
		PrevHash:      s.headHash,
		Verdict:       summary,
		Timestamp:     ts.UTC(),
	}
	record.ContentHash = record.Recompute()

	if err := s.store.Append(ctx, record); err != nil {
		return models.LedgerRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist ledger record")
	}
	s.nextSeq++
	s.headHash = record.ContentHash

	// stats counters are a rebuildable cache; a failed increment is logged,
	// never surfaced
	if err := s.counter.Increment(ctx, summary.Level); err != nil {
		s.logger.WarnContext(ctx, "verdict counter increment failed",
			"level", summary.Level,
			"error", err,
		)
	}
	s.metrics.IncAppend(string(summary.Level))

	return record, nil
}

// loadHead initializes the in-memory chain head from storage. Called under mu.
func (s *Service) loadHead(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	last, err := s.store.Last(ctx)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.nextSeq = 0
		s.headHash = models.GenesisHash
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "load ledger head")
	default:
		s.nextSeq = last.SequenceIndex + 1
		s.headHash = last.ContentHash
	}
	s.loaded = true
	return nil
}

// VerifyChain recomputes every content hash and linkage from the genesis
// anchor forward. The walk is read-only; on the first mismatch the ledger
// seals and a critical alert is published.
func (s *Service) VerifyChain(ctx context.Context) (models.VerifyResult, error) {
	prev := models.GenesisHash
	var index int64

	for {
		batch, err := s.store.List(ctx, index, verifyBatchSize)
		if err != nil {
			return models.VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger for verification")
		}
		if len(batch) == 0 {
			break
		}
		for _, record := range batch {
			if record.SequenceIndex != index ||
				record.PrevHash != prev ||
				record.Recompute() != record.ContentHash {
				s.seal(ctx, index)
				s.metrics.IncVerification("mismatch")
				return models.VerifyResult{OK: false, MismatchAt: index, Records: index + 1}, nil
			}
			prev = record.ContentHash
			index++
		}
		if int64(len(batch)) < verifyBatchSize {
			break
		}
	}

	s.metrics.IncVerification("ok")
	return models.VerifyResult{OK: true, MismatchAt: -1, Records: index}, nil
}

// seal moves the ledger into the read-only safe state.
func (s *Service) seal(ctx context.Context, mismatchAt int64) {
	if s.sealed.Swap(true) {
		return
	}
	s.metrics.MarkSealed()
	s.logger.ErrorContext(ctx, "ledger chain integrity failure, sealing",
		"mismatch_at", mismatchAt,
	)
	s.alerts.ChainIntegrityFailure(ctx, mismatchAt)
}

// Sealed reports whether the ledger refuses appends.
func (s *Service) Sealed() bool {
	return s.sealed.Load()
}

// Export returns ordered records for external auditors.
func (s *Service) Export(ctx context.Context, offset, limit int64) ([]models.LedgerRecord, error) {
	records, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "export ledger records")
	}
	return records, nil
}

// Stats returns verdict counts by level, including zero entries for levels
// never seen so the response shape is stable.
func (s *Service) Stats(ctx context.Context) (map[riskmodels.Level]int64, error) {
	counts, err := s.counter.Counts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read verdict counters")
	}
	for _, level := range []riskmodels.Level{riskmodels.LevelNormal, riskmodels.LevelSuspicious, riskmodels.LevelHigh} {
		if _, ok := counts[level]; !ok {
			counts[level] = 0
		}
	}
	return counts, nil
}

// Count returns the number of ledger records.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count ledger records: %w", err)
	}
	return n, nil
}
