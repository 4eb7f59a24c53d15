package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/codecollab/server/internal/auth"
	"github.com/codecollab/server/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validRegistration(req registerRequest) string {
	if len(req.Username) < 3 || len(req.Username) > 50 {
		return "Username must be between 3 and 50 characters"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "Invalid email address"
	}
	if len(req.Password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}

func userPayload(u *store.User) map[string]any {
	return map[string]any{
		"id":         u.ID.Hex(),
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt.Format(time.RFC3339),
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validRegistration(req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	exists, err := a.users.EmailExists(r.Context(), req.Email)
	if err != nil {
		a.log.Error().Err(err).Msg("email lookup failed")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	if exists {
		respondError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.log.Error().Err(err).Msg("password hashing failed")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user, err := a.users.Create(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		a.log.Error().Err(err).Msg("user creation failed")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	token, err := a.tokens.Issue(user.ID.Hex())
	if err != nil {
		a.log.Error().Err(err).Msg("token issuance failed")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, envelope("User registered successfully", map[string]any{
		"user":         userPayload(user),
		"access_token": token,
		"token_type":   "bearer",
	}))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := a.users.ByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		a.log.Error().Err(err).Msg("user lookup failed")
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.HashedPassword) {
		respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := a.tokens.Issue(user.ID.Hex())
	if err != nil {
		a.log.Error().Err(err).Msg("token issuance failed")
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Login successful", map[string]any{
		"user":         userPayload(user),
		"access_token": token,
		"token_type":   "bearer",
	}))
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	user, err := a.users.ByID(r.Context(), ident.ID)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, envelope("Current user", userPayload(user)))
}
