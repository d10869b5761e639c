package handlers

import (
	"net/http"

	"scorer-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// MatchHandler handles match-related HTTP requests
type MatchHandler struct {
	matchService *services.MatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
	}
}

// Create handles POST /api/matches/create
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateMatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	match, err := h.matchService.Create(r.Context(), currentUser(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

// MyMatches handles GET /api/matches/my-matches
func (h *MatchHandler) MyMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListMine(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

// PendingValidation handles GET /api/matches/pending-validation
func (h *MatchHandler) PendingValidation(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListPendingValidation(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

// Stats handles GET /api/matches/stats
func (h *MatchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.matchService.Stats(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Leaderboard handles GET /api/matches/leaderboard?year=
func (h *MatchHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.matchService.Leaderboard(r.Context(), currentUser(r), r.URL.Query().Get("year"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Get handles GET /api/matches/{match_id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.Get(r.Context(), chi.URLParam(r, "match_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

// Validate handles POST /api/matches/{match_id}/validate
func (h *MatchHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.matchService.Validate(r.Context(), currentUser(r), chi.URLParam(r, "match_id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Match validated successfully")
}

// AddPlayer handles POST /api/matches/{match_id}/players
func (h *MatchHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var in services.AddPlayerInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	match, err := h.matchService.AddPlayer(r.Context(), currentUser(r), chi.URLParam(r, "match_id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

// SkipValidation handles POST /api/matches/{match_id}/skip-validation
func (h *MatchHandler) SkipValidation(w http.ResponseWriter, r *http.Request) {
	if _, err := h.matchService.SkipValidation(r.Context(), currentUser(r), chi.URLParam(r, "match_id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Match validation skipped successfully")
}
