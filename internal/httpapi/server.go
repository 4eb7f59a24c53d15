package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// NewServer builds the HTTP server with production timeout settings.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Start runs the server until it exits. A normal shutdown is not reported as
// an error.
func Start(server *http.Server, log zerolog.Logger) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to the timeout for active
// requests to finish.
func Shutdown(server *http.Server, timeout time.Duration, log zerolog.Logger) error {
	log.Info().Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
		return err
	}
	return nil
}
