package handlers

import (
	"encoding/json"
	"net/http"

	"scorer-backend/internal/models"
	"scorer-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins
// restricts browser origins; an empty list or "*" accepts any origin.
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, r, models.NewUnauthenticatedError("token required"))
		return
	}

	user, err := h.userService.Authenticate(r.Context(), token)
	if err != nil {
		respondError(w, r, err)
		return
	}
	userID := user.AuthID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.reply(userID, services.WSMessage{Type: services.EventError, Message: "Invalid message format"})
			continue
		}

		switch msg.Type {
		case services.EventPing:
			h.reply(userID, services.WSMessage{Type: services.EventPong})
		default:
			h.reply(userID, services.WSMessage{Type: services.EventError, Message: "Unknown message type"})
		}
	}
}

// reply writes through the hub so that writes never race with notifications
func (h *WebSocketHandler) reply(userID string, msg services.WSMessage) {
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to send WebSocket reply")
	}
}
