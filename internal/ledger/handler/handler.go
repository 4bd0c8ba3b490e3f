package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"printtrace/internal/ledger"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/httputil"
	"printtrace/pkg/requestcontext"
)

// defaultExportLimit bounds an export page when the caller does not set one.
const defaultExportLimit = 100

// maxExportLimit caps a single export page.
const maxExportLimit = 1000

// Handler serves the audit ledger endpoints.
type Handler struct {
	service *ledger.Service
	logger  *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(service *ledger.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/verify", h.HandleVerify)
	r.Get("/ledger/export", h.HandleExport)
	r.Get("/ledger/stats", h.HandleStats)
}

// HandleVerify handles GET /ledger/verify requests. The walk is read-only
// but a detected mismatch seals the ledger as a side effect.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.authorized(w, r) {
		return
	}

	result, err := h.service.VerifyChain(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "chain verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerifyFromResult(result))
}

// HandleExport handles GET /ledger/export?limit=&offset= requests.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.authorized(w, r) {
		return
	}

	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultExportLimit)
	if !ok {
		return
	}
	if limit > maxExportLimit {
		limit = maxExportLimit
	}

	records, err := h.service.Export(ctx, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "ledger export failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	total, err := h.service.Count(ctx)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "count ledger records"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ExportFromRecords(records, offset, total))
}

// HandleStats handles GET /ledger/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.authorized(w, r) {
		return
	}

	counts, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "ledger stats failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatsFromCounts(counts, h.service.Sealed()))
}

func (h *Handler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if requestcontext.InvestigatorID(r.Context()) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return false
	}
	return true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "%s must be a non-negative integer", name))
		return 0, false
	}
	return n, true
}
