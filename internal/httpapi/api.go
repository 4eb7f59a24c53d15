// Package httpapi exposes the REST and WebSocket surface of the CodeCollab
// backend.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/codecollab/server/internal/ai"
	"github.com/codecollab/server/internal/auth"
	"github.com/codecollab/server/internal/store"
	"github.com/codecollab/server/internal/ws"
)

// UserStore is the account persistence the handlers need.
type UserStore interface {
	Create(ctx context.Context, username, email, hashedPassword string) (*store.User, error)
	ByEmail(ctx context.Context, email string) (*store.User, error)
	ByID(ctx context.Context, id string) (*store.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// SnippetStore is the snippet persistence the handlers need.
type SnippetStore interface {
	Create(ctx context.Context, userID string, in store.SnippetInput) (*store.Snippet, error)
	ByID(ctx context.Context, id, userID string) (*store.Snippet, error)
	ListByUser(ctx context.Context, userID string, skip, limit int64) ([]store.Snippet, error)
	ListPublic(ctx context.Context, skip, limit int64) ([]store.Snippet, error)
	Update(ctx context.Context, id, userID string, in store.SnippetInput) (*store.Snippet, error)
	Delete(ctx context.Context, id, userID string) error
}

// ChatStore is the chat history persistence the handlers need.
type ChatStore interface {
	Insert(ctx context.Context, userID, prompt, response, mode, codeContext string) (string, error)
	ByID(ctx context.Context, id, userID string) (*store.ChatHistory, error)
	ListByUser(ctx context.Context, userID string, skip, limit int64) ([]store.ChatHistory, error)
	Delete(ctx context.Context, id, userID string) error
}

// API aggregates the handler dependencies.
type API struct {
	gate     *auth.Gate
	tokens   *auth.Tokens
	users    UserStore
	snippets SnippetStore
	chats    ChatStore
	engine   ai.Engine
	hub      *ws.Hub
	origins  *originPolicy
	log      zerolog.Logger
}

// New builds the API surface.
func New(gate *auth.Gate, tokens *auth.Tokens, users UserStore, snippets SnippetStore, chats ChatStore, engine ai.Engine, hub *ws.Hub, allowedOrigins []string, log zerolog.Logger) *API {
	return &API{
		gate:     gate,
		tokens:   tokens,
		users:    users,
		snippets: snippets,
		chats:    chats,
		engine:   engine,
		hub:      hub,
		origins:  newOriginPolicy(allowedOrigins, log),
		log:      log,
	}
}

// Router assembles all routes.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Get("/health", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
			r.With(a.requireAuth).Get("/me", a.handleMe)
		})

		r.Route("/snippets", func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/", a.handleCreateSnippet)
			r.Get("/", a.handleListSnippets)
			r.Get("/{id}", a.handleGetSnippet)
			r.Put("/{id}", a.handleUpdateSnippet)
			r.Delete("/{id}", a.handleDeleteSnippet)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/prompt", a.handleAIPrompt)
			r.Get("/history", a.handleListHistory)
			r.Get("/history/{id}", a.handleGetHistory)
			r.Delete("/history/{id}", a.handleDeleteHistory)
		})
	})

	r.Get("/ws/chat", a.handleDirectWS)
	r.Get("/ws/team/{room}", a.handleTeamWS)

	return r
}

// handleHealth reports liveness.
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
