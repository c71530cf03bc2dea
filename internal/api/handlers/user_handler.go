package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/anxiouscrypt/smapp/internal/auth"
	"github.com/anxiouscrypt/smapp/internal/services"
	"github.com/anxiouscrypt/smapp/internal/store"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenManager
	secure  bool
}

// NewUserHandler creates a new UserHandler. secure controls the Secure
// flag on the session cookie and should be on in production.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenManager, secure bool) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, secure: secure}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// Login handles user authentication and session token issuance. All
// authentication failures produce the same 401 body, whether the
// username is unknown or the password is wrong, so the endpoint cannot
// be used to enumerate usernames.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed authentication attempt")
		switch {
		case errors.Is(err, store.ErrBackendUnavailable):
			writeError(w, http.StatusServiceUnavailable, "storage backend unavailable, retry later")
		case errors.Is(err, store.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		}
		return
	}

	token, err := h.tokens.Generate(rec.Username())
	if err != nil {
		log.Error().Err(err).Str("username", rec.Username()).Msg("Failed to generate session token")
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  rec,
	})
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeError(w, http.StatusInternalServerError, "could not retrieve user from token")
		return
	}

	rec, err := h.service.GetUser(r.Context(), claims.Username)
	if err != nil {
		log.Warn().Err(err).Str("username", claims.Username).Msg("User from token not found in store")
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Get handles retrieving a user profile by username.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.service.GetUser(r.Context(), username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to get user")
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Update merges profile fields into the user's record. The body is a
// flat JSON object of field name to string value; the response is the
// full merged record.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !h.authorize(w, r, username) {
		return
	}

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.UpdateProfile(r.Context(), username, fields)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to update user")
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ChangePassword handles changing a user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !h.authorize(w, r, username) {
		return
	}

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ChangePassword(r.Context(), username, payload.CurrentPassword, payload.NewPassword); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to change password")
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Delete handles the permanent deletion of a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !h.authorize(w, r, username) {
		return
	}

	if err := h.service.DeleteUser(r.Context(), username); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to delete user")
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorize ensures the authenticated token belongs to the account
// being modified.
func (h *UserHandler) authorize(w http.ResponseWriter, r *http.Request, username string) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing auth token")
		return false
	}
	if claims.Username != username {
		writeError(w, http.StatusForbidden, "cannot modify another user's account")
		return false
	}
	return true
}
