package risk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"printtrace/internal/identity"
	identitymodels "printtrace/internal/identity/models"
	"printtrace/internal/ledger"
	"printtrace/internal/ledger/alert"
	ledgermodels "printtrace/internal/ledger/models"
	"printtrace/internal/quality"
	"printtrace/internal/quality/classifier"
	qualitymodels "printtrace/internal/quality/models"
	"printtrace/internal/risk/metrics"
	riskmodels "printtrace/internal/risk/models"
	"printtrace/internal/usage/analyzer"
	usagemodels "printtrace/internal/usage/models"
	usagestore "printtrace/internal/usage/store"
	id "printtrace/pkg/domain"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/keymutex"
	"printtrace/pkg/platform/sentinel"
)

// Config bundles the tunables the evaluation pipeline needs.
type Config struct {
	Analyzer analyzer.Config
	Quality  quality.Config
	Fusion   FusionConfig

	// ClassifierRequired selects the degraded-mode policy: false proceeds
	// with a usage-only verdict, true rejects the analysis.
	ClassifierRequired bool
	IndicatorDigestKey []byte
}

// Service runs the full pipeline for one usage event: record, analyze
// patterns, gather collaborator evidence, fuse, and commit the verdict to the
// audit ledger. A verdict only becomes observable after the ledger commit.
type Service struct {
	cfg        Config
	events     usagestore.Store
	classifier classifier.Classifier // nil: no classifier configured
	identity   identity.Client       // nil: no identity registry configured
	ledger     *ledger.Service
	alerts     *alert.Publisher
	locks      *keymutex.KeyMutex
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewService(
	cfg Config,
	events usagestore.Store,
	classifierClient classifier.Classifier,
	identityClient identity.Client,
	ledgerService *ledger.Service,
	alerts *alert.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		cfg:        cfg,
		events:     events,
		classifier: classifierClient,
		identity:   identityClient,
		ledger:     ledgerService,
		alerts:     alerts,
		locks:      keymutex.New(),
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("printtrace/risk"),
	}
}

// EvaluateInput is a validated analysis request. PersonID and Indicator are
// optional: without a person the status mismatch check is skipped, without an
// inline indicator the classifier collaborator is consulted.
type EvaluateInput struct {
	FingerprintDigest id.FingerprintDigest
	CaseID            id.CaseID
	Sector            id.Sector
	PersonID          id.PersonID
	Timestamp         time.Time
	Indicator         *qualitymodels.QualityIndicator
}

// EvaluateResult pairs the verdict with its ledger commit confirmation.
type EvaluateResult struct {
	Verdict       riskmodels.RiskVerdict
	LedgerHash    string
	LedgerIndex   int64
	EventSequence uint64
}

// Evaluate runs the pipeline. Work for the same digest is serialized;
// different digests proceed in parallel.
func (s *Service) Evaluate(ctx context.Context, input EvaluateInput) (EvaluateResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "risk.Evaluate",
		trace.WithAttributes(
			attribute.String("fingerprint_digest", string(input.FingerprintDigest)),
			attribute.String("case_id", string(input.CaseID)),
		))
	defer span.End()
	defer func() {
		s.metrics.ObserveEvaluateLatency(time.Since(start))
	}()

	// a sealed ledger halts all analysis writes before any state changes
	if s.ledger.Sealed() {
		return EvaluateResult{}, dErrors.Wrap(sentinel.ErrSealed,
			dErrors.CodeChainIntegrity, "ledger is sealed after a chain integrity failure")
	}

	release, err := s.locks.Lock(string(input.FingerprintDigest))
	if err != nil {
		s.logger.ErrorContext(ctx, "serialization invariant violated",
			"fingerprint_digest", input.FingerprintDigest,
			"error", err,
		)
		return EvaluateResult{}, err
	}
	defer release()

	event, err := s.events.Append(ctx, usagemodels.UsageEvent{
		FingerprintDigest: input.FingerprintDigest,
		CaseID:            input.CaseID,
		Sector:            input.Sector,
		Timestamp:         input.Timestamp,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrOutOfOrder) {
			return EvaluateResult{}, dErrors.Wrap(err, dErrors.CodeOutOfOrder,
				"event timestamp precedes recorded history for this digest")
		}
		return EvaluateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "record usage event")
	}

	evidence, err := s.gatherEvidence(ctx, input)
	if err != nil {
		return EvaluateResult{}, err
	}

	history, err := s.events.History(ctx, input.FingerprintDigest, 0, event.Timestamp)
	if err != nil {
		return EvaluateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load usage history")
	}
	pattern := analyzer.Analyze(s.cfg.Analyzer, history)

	verdict := Fuse(s.cfg.Fusion, FusionInput{
		FingerprintDigest: input.FingerprintDigest,
		CaseID:            input.CaseID,
		EventTime:         event.Timestamp,
		Usage:             pattern,
		Quality:           evidence.quality,
		Identity:          evidence.identity,
	})

	record, err := s.ledger.Append(ctx, ledgermodels.VerdictSummary{
		FingerprintDigest:  verdict.FingerprintDigest,
		CaseID:             verdict.CaseID,
		Level:              verdict.Level,
		CombinedScore:      verdict.CombinedScore,
		QualityUnavailable: verdict.QualityUnavailable,
		IndicatorDigest:    verdict.IndicatorDigest,
	}, verdict.Timestamp)
	if err != nil {
		return EvaluateResult{}, err
	}

	s.metrics.IncVerdict(string(verdict.Level))
	if verdict.QualityUnavailable {
		s.metrics.IncDegraded()
	}
	if verdict.Level == riskmodels.LevelHigh {
		s.alerts.HighRiskVerdict(ctx, verdict)
	}

	s.logger.InfoContext(ctx, "verdict committed",
		"fingerprint_digest", verdict.FingerprintDigest,
		"case_id", verdict.CaseID,
		"level", verdict.Level,
		"combined_score", verdict.CombinedScore,
		"quality_unavailable", verdict.QualityUnavailable,
		"ledger_index", record.SequenceIndex,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return EvaluateResult{
		Verdict:       verdict,
		LedgerHash:    record.ContentHash,
		LedgerIndex:   record.SequenceIndex,
		EventSequence: event.SequenceNumber,
	}, nil
}

type gatheredEvidence struct {
	identity *identitymodels.IdentityStatus
	quality  qualitymodels.Interpretation
}

// gatherEvidence fetches identity status and quality evidence in parallel
// with shared context cancellation.
func (s *Service) gatherEvidence(ctx context.Context, input EvaluateInput) (*gatheredEvidence, error) {
	g, gctx := errgroup.WithContext(ctx)
	evidence := &gatheredEvidence{}

	if s.identity != nil && input.PersonID != "" {
		g.Go(func() error {
			start := time.Now()
			status, err := s.identity.Status(gctx, input.PersonID)
			s.metrics.ObserveCollaboratorLatency("identity", time.Since(start))
			if err != nil {
				return err
			}
			evidence.identity = &status
			return nil
		})
	}

	g.Go(func() error {
		interp, err := s.gatherQuality(gctx, input)
		if err != nil {
			return err
		}
		evidence.quality = interp
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evidence, nil
}

// gatherQuality produces the quality interpretation from the inline
// indicator or the classifier collaborator, degrading per config when the
// classifier cannot serve.
func (s *Service) gatherQuality(ctx context.Context, input EvaluateInput) (qualitymodels.Interpretation, error) {
	indicator := input.Indicator

	if indicator == nil {
		if s.classifier == nil {
			return s.degrade(ctx, input, errors.New("no classifier configured"))
		}
		start := time.Now()
		fetched, err := s.classifier.Classify(ctx, input.FingerprintDigest)
		s.metrics.ObserveCollaboratorLatency("classifier", time.Since(start))
		if err != nil {
			if errors.Is(err, sentinel.ErrUnavailable) {
				return s.degrade(ctx, input, err)
			}
			return qualitymodels.Interpretation{}, err
		}
		indicator = &fetched
	}

	interp, err := quality.Interpret(s.cfg.Quality, *indicator)
	if err != nil {
		return qualitymodels.Interpretation{}, err
	}

	digest, err := indicator.DigestWithKey(s.cfg.IndicatorDigestKey)
	if err != nil {
		return qualitymodels.Interpretation{}, err
	}
	interp.IndicatorDigest = digest
	return interp, nil
}

// degrade applies the degraded-mode policy for a missing quality assessment.
func (s *Service) degrade(ctx context.Context, input EvaluateInput, cause error) (qualitymodels.Interpretation, error) {
	if s.cfg.ClassifierRequired {
		return qualitymodels.Interpretation{}, dErrors.Wrap(cause,
			dErrors.CodeUnavailable, "quality classifier unavailable and required by policy")
	}
	s.logger.WarnContext(ctx, "proceeding without quality assessment",
		"fingerprint_digest", input.FingerprintDigest,
		"error", cause,
	)
	return quality.Unavailable(), nil
}
