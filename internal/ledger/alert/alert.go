// Package alert publishes security alerts to Kafka: high-risk verdicts and
// chain integrity alarms. Publishing is best-effort for verdicts; a publish
// failure never blocks or fails the analysis that produced it.
package alert

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	riskmodels "printtrace/internal/risk/models"
)

// Producer is the kgo surface the publisher needs. *kgo.Client satisfies it;
// tests inject a recording fake.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Publisher emits alert events. A nil producer degrades to log-only mode.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(producer Producer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

const (
	EventHighRiskVerdict = "high_risk_verdict"
	EventChainIntegrity  = "chain_integrity_failure"
)

// Event is the wire format on the alert topic.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Digest      string    `json:"fingerprint_digest,omitempty"`
	CaseID      string    `json:"case_id,omitempty"`
	Level       string    `json:"level,omitempty"`
	Score       float64   `json:"combined_score,omitempty"`
	ReasonCodes []string  `json:"reason_codes,omitempty"`
	MismatchAt  int64     `json:"mismatch_at,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// HighRiskVerdict publishes an alert for a verdict classified high.
func (p *Publisher) HighRiskVerdict(ctx context.Context, verdict riskmodels.RiskVerdict) {
	p.publish(ctx, Event{
		ID:          uuid.NewString(),
		Type:        EventHighRiskVerdict,
		Timestamp:   time.Now().UTC(),
		Digest:      string(verdict.FingerprintDigest),
		CaseID:      string(verdict.CaseID),
		Level:       string(verdict.Level),
		Score:       verdict.CombinedScore,
		ReasonCodes: verdict.ReasonCodes,
	}, string(verdict.FingerprintDigest))
}

// ChainIntegrityFailure publishes the critical alarm raised when ledger
// verification finds a corrupted record.
func (p *Publisher) ChainIntegrityFailure(ctx context.Context, mismatchAt int64) {
	p.publish(ctx, Event{
		ID:         uuid.NewString(),
		Type:       EventChainIntegrity,
		Timestamp:  time.Now().UTC(),
		MismatchAt: mismatchAt,
		Detail:     "audit ledger verification failed; ledger sealed pending operator intervention",
	}, "ledger")
}

func (p *Publisher) publish(ctx context.Context, event Event, key string) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode alert", "type", event.Type, "error", err)
		return
	}

	if p.producer == nil {
		p.logger.WarnContext(ctx, "alert (kafka disabled)",
			"type", event.Type,
			"payload", string(payload),
		)
		return
	}

	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "publish alert",
			"type", event.Type,
			"topic", p.topic,
			"error", err,
		)
	}
}
