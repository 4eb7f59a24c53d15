package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codecollab/server/internal/ai"
	"github.com/codecollab/server/internal/store"
)

type aiPromptRequest struct {
	Prompt      string `json:"prompt"`
	Mode        string `json:"mode"`
	CodeContext string `json:"code_context"`
}

// handleAIPrompt runs a non-streaming generation, persists the exchange, and
// returns the response with the caller's remaining request budget. It draws
// from the same rate limit as the streaming relay.
func (a *API) handleAIPrompt(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	var req aiPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	mode, err := ai.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unknown mode: "+req.Mode)
		return
	}
	if mode.RequiresContext() && req.CodeContext == "" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("code_context is required for %s mode", mode))
		return
	}

	limiter := a.hub.Limiter()
	if !limiter.Admit(ident.ID) {
		respondError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded. Remaining requests: %d", limiter.Remaining(ident.ID)))
		return
	}

	response, err := a.engine.Complete(r.Context(), ai.Request{
		Prompt:      req.Prompt,
		Mode:        mode,
		CodeContext: req.CodeContext,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("generation failed")
		respondError(w, http.StatusBadGateway, "Error generating response")
		return
	}

	chatID, err := a.chats.Insert(r.Context(), ident.ID, req.Prompt, response, string(mode), req.CodeContext)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to persist chat exchange")
		respondError(w, http.StatusInternalServerError, "Could not save chat history")
		return
	}

	respondJSON(w, http.StatusOK, envelope("AI response generated successfully", map[string]any{
		"response":           response,
		"chat_id":            chatID,
		"mode":               string(mode),
		"remaining_requests": limiter.Remaining(ident.ID),
	}))
}

func (a *API) handleListHistory(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	skip, limit := paging(r)

	chats, err := a.chats.ListByUser(r.Context(), ident.ID, skip, limit)
	if err != nil {
		a.log.Error().Err(err).Msg("chat history listing failed")
		respondError(w, http.StatusInternalServerError, "Could not list chat history")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Chat history retrieved", map[string]any{
		"chats": chats,
		"count": len(chats),
	}))
}

func (a *API) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	chat, err := a.chats.ByID(r.Context(), chi.URLParam(r, "id"), ident.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Chat history not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("chat history lookup failed")
		respondError(w, http.StatusInternalServerError, "Could not fetch chat history")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Chat history retrieved", chat))
}

func (a *API) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	err := a.chats.Delete(r.Context(), chi.URLParam(r, "id"), ident.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Chat history not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("chat history deletion failed")
		respondError(w, http.StatusInternalServerError, "Could not delete chat history")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Chat history deleted", nil))
}
