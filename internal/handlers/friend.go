package handlers

import (
	"net/http"

	"scorer-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// FriendRequest is the body of the request, accept and decline actions
type FriendRequest struct {
	UserID string `json:"user_id"`
}

// FriendHandler handles friend-related HTTP requests
type FriendHandler struct {
	friendService *services.FriendService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
	}
}

// SendRequest handles POST /api/friends/request
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.friendService.SendRequest(r.Context(), currentUser(r), req.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Friend request sent")
}

// AcceptRequest handles POST /api/friends/accept
func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.friendService.AcceptRequest(r.Context(), currentUser(r), req.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Friend request accepted")
}

// DeclineRequest handles POST /api/friends/decline
func (h *FriendHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.friendService.DeclineRequest(r.Context(), currentUser(r), req.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Friend request declined")
}

// List handles GET /api/friends/list
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friendService.ListFriends(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

// Received handles GET /api/friends/requests/received
func (h *FriendHandler) Received(w http.ResponseWriter, r *http.Request) {
	users, err := h.friendService.ListReceived(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Sent handles GET /api/friends/requests/sent
func (h *FriendHandler) Sent(w http.ResponseWriter, r *http.Request) {
	users, err := h.friendService.ListSent(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Search handles GET /api/friends/search?query=
func (h *FriendHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.friendService.Search(r.Context(), currentUser(r), r.URL.Query().Get("query"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Remove handles DELETE /api/friends/remove/{friend_id}
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	friendID := chi.URLParam(r, "friend_id")
	if err := h.friendService.RemoveFriend(r.Context(), currentUser(r), friendID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Friend removed successfully")
}
