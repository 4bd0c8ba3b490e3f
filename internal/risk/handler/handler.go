package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"printtrace/internal/risk"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/httputil"
	"printtrace/pkg/requestcontext"
)

// Service defines the interface for risk analysis operations.
type Service interface {
	Evaluate(ctx context.Context, input risk.EvaluateInput) (risk.EvaluateResult, error)
}

// Handler wires the analysis endpoint to the risk service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a risk handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts analysis endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/analysis/evaluate", h.HandleEvaluate)
}

// HandleEvaluate handles POST /analysis/evaluate requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	investigatorID := requestcontext.InvestigatorID(ctx)
	if investigatorID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Evaluate(ctx, req.ToInput(requestcontext.Now(ctx)))
	if err != nil {
		h.logger.ErrorContext(ctx, "risk evaluation failed",
			"request_id", requestID,
			"investigator_id", investigatorID,
			"fingerprint_digest", req.FingerprintDigest,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "risk evaluated",
		"request_id", requestID,
		"investigator_id", investigatorID,
		"fingerprint_digest", req.FingerprintDigest,
		"level", result.Verdict.Level,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
