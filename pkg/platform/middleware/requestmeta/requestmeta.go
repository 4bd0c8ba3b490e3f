// Package requestmeta stamps each request with a correlation ID and a single
// request-scoped evaluation time so every component in the pipeline observes
// the same clock reading.
package requestmeta

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"printtrace/pkg/requestcontext"
)

// HeaderRequestID is the inbound/outbound correlation header.
const HeaderRequestID = "X-Request-ID"

// RequestMeta injects a request ID (honoring an inbound header when present)
// and the request arrival time into the context.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())

		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
