package handlers

import (
	"net/http"
	"time"

	"scorer-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// HealthResponse reports store connectivity
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Register handles POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), currentUser(r).AuthID, req.Username, req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Me handles GET /api/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}

// Health handles GET /api/auth/health
func (h *UserHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Store:     "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := h.userService.Health(r.Context()); err != nil {
		log.Error().Err(err).Msg("Store health check failed")
		resp.Status = "error"
		resp.Store = ""
		resp.Error = "store unavailable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// Liveness handles GET /api/health
func Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
