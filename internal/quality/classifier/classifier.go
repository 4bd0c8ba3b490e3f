// Package classifier is the port and HTTP adapter for the sample quality
// classifier collaborator. The risk service depends only on the Classifier
// interface; tests substitute a generated mock.
package classifier

//go:generate mockgen -source=classifier.go -destination=mocks/mocks.go -package=mocks Classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"printtrace/internal/quality/models"
	id "printtrace/pkg/domain"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/sentinel"
)

// Classifier assesses the quality of the sample behind a fingerprint digest.
type Classifier interface {
	Classify(ctx context.Context, digest id.FingerprintDigest) (models.QualityIndicator, error)
}

// HTTPClient calls a remote classifier over HTTP with bounded retries.
// Transient failures (network errors, 5xx) are retried with a flat backoff;
// once retries are exhausted the error wraps sentinel.ErrUnavailable so the
// service can degrade to a usage-only verdict.
type HTTPClient struct {
	baseURL string
	retries int
	backoff time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, retries int, backoff time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		retries: retries,
		backoff: backoff,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type classifyRequest struct {
	FingerprintDigest string `json:"fingerprint_digest"`
}

// Classify requests a quality indicator for the given digest.
func (c *HTTPClient) Classify(ctx context.Context, digest id.FingerprintDigest) (models.QualityIndicator, error) {
	body, err := json.Marshal(classifyRequest{FingerprintDigest: string(digest)})
	if err != nil {
		return models.QualityIndicator{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode classify request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return models.QualityIndicator{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "classifier call cancelled")
			case <-time.After(c.backoff):
			}
			c.logger.WarnContext(ctx, "retrying classifier call",
				"attempt", attempt,
				"fingerprint_digest", digest,
				"error", lastErr,
			)
		}

		indicator, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return indicator, nil
		}
		if !retryable {
			return models.QualityIndicator{}, err
		}
		lastErr = err
	}

	return models.QualityIndicator{}, dErrors.Wrap(
		fmt.Errorf("%w: %w", sentinel.ErrUnavailable, lastErr),
		dErrors.CodeUnavailable, "classifier unreachable after retries")
}

func (c *HTTPClient) attempt(ctx context.Context, body []byte) (models.QualityIndicator, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return models.QualityIndicator{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "build classify request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.QualityIndicator{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return models.QualityIndicator{}, true, fmt.Errorf("classifier returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return models.QualityIndicator{}, false,
			dErrors.Newf(dErrors.CodeInvalidInput, "classifier rejected request with %d", resp.StatusCode)
	}

	var indicator models.QualityIndicator
	if err := json.NewDecoder(resp.Body).Decode(&indicator); err != nil {
		return models.QualityIndicator{}, true, fmt.Errorf("decode classifier response: %w", err)
	}
	return indicator, false, nil
}
