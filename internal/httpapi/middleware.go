package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/codecollab/server/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// identityFrom returns the authenticated identity attached by requireAuth.
func identityFrom(ctx context.Context) auth.Identity {
	ident, _ := ctx.Value(identityKey).(auth.Identity)
	return ident
}

// requireAuth authenticates the bearer token and attaches the identity to the
// request context.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}

		ident, err := a.gate.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		a.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
