package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"printtrace/internal/usage/store"
	id "printtrace/pkg/domain"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/httputil"
	"printtrace/pkg/requestcontext"
)

// Handler serves read-only usage history and stats for investigators.
type Handler struct {
	store  store.Store
	logger *slog.Logger
}

// New constructs a usage handler with its dependencies.
func New(store store.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts usage endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/usage/{digest}/history", h.HandleHistory)
	r.Get("/usage/{digest}/stats", h.HandleStats)
}

// HandleHistory handles GET /usage/{digest}/history?window= requests.
// window accepts Go duration syntax; absent means all retained history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	digest, ok := h.digestParam(w, r)
	if !ok {
		return
	}

	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "window must be a positive duration"))
			return
		}
		window = parsed
	}

	events, err := h.store.History(ctx, digest, window, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "usage history lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"fingerprint_digest", digest,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load usage history"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HistoryFromEvents(digest, events))
}

// HandleStats handles GET /usage/{digest}/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	digest, ok := h.digestParam(w, r)
	if !ok {
		return
	}

	stats, err := h.store.Stats(ctx, digest, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "usage stats lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"fingerprint_digest", digest,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load usage stats"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatsFromModel(digest, stats))
}

func (h *Handler) digestParam(w http.ResponseWriter, r *http.Request) (id.FingerprintDigest, bool) {
	if requestcontext.InvestigatorID(r.Context()) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	digest, err := id.ParseFingerprintDigest(chi.URLParam(r, "digest"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return digest, true
}
