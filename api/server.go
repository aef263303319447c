package api

import (
	"net/http"
	"time"

	"github.com/bjaksic84/rentmate-backend/pkg/config"
)

const readHeaderTimeout = 5 * time.Second

// NewServer builds the HTTP server cmd/api runs, with the configured timeouts.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadTimeout:       cfg.App.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
		IdleTimeout:       2 * cfg.App.WriteTimeout,
	}
}
