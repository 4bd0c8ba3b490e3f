package risk

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	identitymocks "printtrace/internal/identity/mocks"
	identitymodels "printtrace/internal/identity/models"
	"printtrace/internal/ledger"
	"printtrace/internal/ledger/alert"
	"printtrace/internal/ledger/models"
	"printtrace/internal/ledger/stats"
	"printtrace/internal/quality"
	classifiermocks "printtrace/internal/quality/classifier/mocks"
	qualitymodels "printtrace/internal/quality/models"
	riskmodels "printtrace/internal/risk/models"
	"printtrace/internal/usage/analyzer"
	usagestore "printtrace/internal/usage/store"
	id "printtrace/pkg/domain"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/sentinel"
)

const (
	testDigest = id.FingerprintDigest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testPerson = id.PersonID("P-77")
)

var evalTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctrl           *gomock.Controller
	mockClassifier *classifiermocks.MockClassifier
	mockIdentity   *identitymocks.MockClient
	events         *usagestore.InMemoryStore
	ledgerStore    *ledger.InMemoryStore
	ledgerService  *ledger.Service
	service        *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockClassifier = classifiermocks.NewMockClassifier(s.ctrl)
	s.mockIdentity = identitymocks.NewMockClient(s.ctrl)
	s.events = usagestore.NewInMemoryStore()
	s.ledgerStore = ledger.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	alerts := alert.NewPublisher(nil, "printtrace.alerts", logger)
	s.ledgerService = ledger.NewService(s.ledgerStore, stats.NewMemoryCounter(), alerts, logger, nil)

	s.service = NewService(
		s.config(),
		s.events,
		s.mockClassifier,
		s.mockIdentity,
		s.ledgerService,
		alerts,
		logger,
		nil,
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) config() Config {
	return Config{
		Analyzer: analyzer.Config{
			FrequencyThreshold: 5,
			FrequencyWindow:    24 * time.Hour,
			DormancyGap:        30 * 24 * time.Hour,
			FrequencyWeight:    30,
			ReuseWeight:        40,
			ReactivationWeight: 30,
		},
		Quality: quality.Config{
			LivenessWeight:    0.5,
			ClarityWeight:     0.25,
			TextureWeight:     0.25,
			DistortionPenalty: 5,
			ReasonThreshold:   0.5,
		},
		Fusion: FusionConfig{
			UsageWeight:   0.4,
			QualityWeight: 0.6,
			SuspiciousAt:  40,
			HighAt:        70,
		},
		ClassifierRequired: false,
		IndicatorDigestKey: []byte("unit-test-key"),
	}
}

func (s *ServiceSuite) input() EvaluateInput {
	return EvaluateInput{
		FingerprintDigest: testDigest,
		CaseID:            "FOR-2024-1",
		Sector:            id.SectorForensic,
		PersonID:          testPerson,
		Timestamp:         evalTime,
	}
}

func (s *ServiceSuite) alive() identitymodels.IdentityStatus {
	return identitymodels.IdentityStatus{Status: identitymodels.StatusAlive}
}

func (s *ServiceSuite) goodIndicator() qualitymodels.QualityIndicator {
	return qualitymodels.QualityIndicator{Liveness: 1, RidgeClarity: 1, Texture: 1, Confidence: 1}
}

func (s *ServiceSuite) TestEvaluateHappyPath() {
	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(s.alive(), nil)
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).Return(s.goodIndicator(), nil)

	result, err := s.service.Evaluate(context.Background(), s.input())
	s.Require().NoError(err)

	s.Equal(riskmodels.LevelNormal, result.Verdict.Level)
	s.False(result.Verdict.QualityUnavailable)
	s.NotEmpty(result.Verdict.IndicatorDigest)
	s.NotEmpty(result.LedgerHash)
	s.Equal(int64(0), result.LedgerIndex)
	s.Equal(uint64(1), result.EventSequence)

	// verdict was committed to the ledger
	count, err := s.ledgerService.Count(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *ServiceSuite) TestEvaluateInlineIndicatorSkipsClassifier() {
	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(s.alive(), nil)

	input := s.input()
	indicator := s.goodIndicator()
	input.Indicator = &indicator

	result, err := s.service.Evaluate(context.Background(), input)
	s.Require().NoError(err)
	s.False(result.Verdict.QualityUnavailable)
}

func (s *ServiceSuite) TestEvaluateDegradesWhenClassifierDown() {
	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(s.alive(), nil)
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).
		Return(qualitymodels.QualityIndicator{}, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "down"))

	result, err := s.service.Evaluate(context.Background(), s.input())
	s.Require().NoError(err)
	s.True(result.Verdict.QualityUnavailable)
	s.Zero(result.Verdict.QualityRisk)
	s.Contains(result.Verdict.Explanation, "degraded confidence")
}

func (s *ServiceSuite) TestEvaluateRejectsWhenClassifierRequired() {
	cfg := s.config()
	cfg.ClassifierRequired = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(cfg, s.events, s.mockClassifier, s.mockIdentity, s.ledgerService,
		alert.NewPublisher(nil, "printtrace.alerts", logger), logger, nil)

	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(s.alive(), nil).AnyTimes()
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).
		Return(qualitymodels.QualityIndicator{}, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "down"))

	_, err := service.Evaluate(context.Background(), s.input())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	// nothing reached the ledger
	count, countErr := s.ledgerService.Count(context.Background())
	s.Require().NoError(countErr)
	s.Zero(count)
}

func (s *ServiceSuite) TestEvaluateStatusMismatchForcesHigh() {
	deceased := identitymodels.IdentityStatus{
		Status:            identitymodels.StatusDeceased,
		LastKnownActivity: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(deceased, nil)
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).Return(s.goodIndicator(), nil)

	input := s.input()
	input.Timestamp = time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)

	result, err := s.service.Evaluate(context.Background(), input)
	s.Require().NoError(err)
	s.Equal(riskmodels.LevelHigh, result.Verdict.Level)
	s.True(result.Verdict.StatusMismatch)
	s.Contains(result.Verdict.ReasonCodes, riskmodels.ReasonStatusMismatchDeceased)
}

func (s *ServiceSuite) TestEvaluateRejectsBackdatedEvent() {
	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(s.alive(), nil).AnyTimes()
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).Return(s.goodIndicator(), nil).AnyTimes()

	_, err := s.service.Evaluate(context.Background(), s.input())
	s.Require().NoError(err)

	backdated := s.input()
	backdated.Timestamp = evalTime.Add(-time.Hour)
	_, err = s.service.Evaluate(context.Background(), backdated)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeOutOfOrder))

	// the rejected event left no ledger trace
	count, countErr := s.ledgerService.Count(context.Background())
	s.Require().NoError(countErr)
	s.Equal(int64(1), count)
}

func (s *ServiceSuite) TestEvaluateSkipsIdentityWithoutPerson() {
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).Return(s.goodIndicator(), nil)

	input := s.input()
	input.PersonID = ""
	result, err := s.service.Evaluate(context.Background(), input)
	s.Require().NoError(err)
	s.False(result.Verdict.StatusMismatch)
}

func (s *ServiceSuite) TestEvaluateSealedLedgerRejectsEverything() {
	s.appendAndTamper()

	_, err := s.service.Evaluate(context.Background(), s.input())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChainIntegrity))
}

// appendAndTamper drives the ledger into the sealed state.
func (s *ServiceSuite) appendAndTamper() {
	ctx := context.Background()
	_, err := s.ledgerService.Append(ctx, models.VerdictSummary{
		FingerprintDigest: testDigest,
		CaseID:            "FOR-2024-1",
		Level:             riskmodels.LevelNormal,
	}, evalTime)
	s.Require().NoError(err)
	s.ledgerStore.Tamper(0, func(r *models.LedgerRecord) {
		r.Verdict.CombinedScore = 99
	})
	result, err := s.ledgerService.VerifyChain(ctx)
	s.Require().NoError(err)
	s.Require().False(result.OK)
}

func (s *ServiceSuite) TestEvaluateSameDigestSerializes() {
	s.mockIdentity.EXPECT().Status(gomock.Any(), testPerson).Return(s.alive(), nil).AnyTimes()
	s.mockClassifier.EXPECT().Classify(gomock.Any(), testDigest).Return(s.goodIndicator(), nil).AnyTimes()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := s.input()
			input.Timestamp = evalTime.Add(time.Duration(i) * time.Millisecond)
			_, errs[i] = s.service.Evaluate(context.Background(), input)
		}(i)
	}
	wg.Wait()

	// concurrent analyses may collide on ordering but must never corrupt
	// state: every accepted event got a unique sequence and ledger slot
	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeOutOfOrder))
		}
	}
	s.Positive(accepted)

	count, err := s.ledgerService.Count(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(accepted), count)

	result, err := s.ledgerService.VerifyChain(context.Background())
	s.Require().NoError(err)
	s.True(result.OK)
}
