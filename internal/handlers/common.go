package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"scorer-backend/internal/middleware"
	"scorer-backend/internal/models"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// MessageResponse is the body of actions that return no resource
type MessageResponse struct {
	Message string `json:"message"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondMessage sends a {"message": ...} response
func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// respondError sends an error response. Internal errors are logged and
// reported without details.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := models.ResponseFor(err)
	if status == http.StatusInternalServerError {
		event := log.Error().
			Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path)
		if user := middleware.UserFromContext(r.Context()); user != nil {
			event = event.Str("user_id", user.AuthID)
		}
		event.Msg("Request failed")
	}
	respondJSON(w, status, body)
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.NewValidationError("Request body is required")
		}
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// currentUser returns the authenticated caller set by the auth middleware
func currentUser(r *http.Request) *models.User {
	return middleware.UserFromContext(r.Context())
}
