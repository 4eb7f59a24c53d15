package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/codecollab/server/internal/store"
)

func paging(r *http.Request) (skip, limit int64) {
	skip, limit = 0, 50
	if v, err := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64); err == nil && v >= 0 {
		skip = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v >= 1 && v <= 100 {
		limit = v
	}
	return skip, limit
}

func (a *API) handleCreateSnippet(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	var in store.SnippetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Title == "" || in.Code == "" {
		respondError(w, http.StatusBadRequest, "Title and code are required")
		return
	}

	snippet, err := a.snippets.Create(r.Context(), ident.ID, in)
	if err != nil {
		a.log.Error().Err(err).Msg("snippet creation failed")
		respondError(w, http.StatusInternalServerError, "Could not create snippet")
		return
	}

	respondJSON(w, http.StatusCreated, envelope("Snippet created", snippet))
}

func (a *API) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	skip, limit := paging(r)

	var (
		snippets []store.Snippet
		err      error
	)
	if r.URL.Query().Get("public") == "true" {
		snippets, err = a.snippets.ListPublic(r.Context(), skip, limit)
	} else {
		snippets, err = a.snippets.ListByUser(r.Context(), ident.ID, skip, limit)
	}
	if err != nil {
		a.log.Error().Err(err).Msg("snippet listing failed")
		respondError(w, http.StatusInternalServerError, "Could not list snippets")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Snippets retrieved", map[string]any{
		"snippets": snippets,
		"count":    len(snippets),
	}))
}

func (a *API) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	snippet, err := a.snippets.ByID(r.Context(), chi.URLParam(r, "id"), ident.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Snippet not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("snippet lookup failed")
		respondError(w, http.StatusInternalServerError, "Could not fetch snippet")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Snippet retrieved", snippet))
}

func (a *API) handleUpdateSnippet(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	var in store.SnippetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snippet, err := a.snippets.Update(r.Context(), chi.URLParam(r, "id"), ident.ID, in)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Snippet not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("snippet update failed")
		respondError(w, http.StatusInternalServerError, "Could not update snippet")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Snippet updated", snippet))
}

func (a *API) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	err := a.snippets.Delete(r.Context(), chi.URLParam(r, "id"), ident.ID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Snippet not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("snippet deletion failed")
		respondError(w, http.StatusInternalServerError, "Could not delete snippet")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Snippet deleted", nil))
}
