package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/anxiouscrypt/smapp/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors onto HTTP status codes for profile
// flows, where a missing record is allowed to be a visible 404. Login
// flows must not use this; they flatten their failures instead.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "username is already taken")
	case errors.Is(err, store.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, store.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage backend unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
