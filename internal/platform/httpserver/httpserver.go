package httpserver

import (
	"net/http"
	"time"

	"printtrace/internal/platform/config"
)

// New builds the API server. Evaluation requests can block on collaborator
// calls, so the write timeout must comfortably exceed the classifier's full
// retry budget; operators tune both together.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
