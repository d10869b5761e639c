package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scorer-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) services.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg services.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketRejectsMissingOrBadToken(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	_, resp, err := dialWS(t, srv, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialWS(t, srv, "garbage")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketReceivesFriendRequest(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")
	api.register(t, "bob")
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	conn, _, err := dialWS(t, srv, "token-bob")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return api.hub.IsOnline("bob") }, 2*time.Second, 10*time.Millisecond)

	rec := api.do(t, http.MethodPost, "/api/friends/request", "alice", FriendRequest{UserID: "bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	msg := readMessage(t, conn)
	assert.Equal(t, services.EventFriendRequest, msg.Type)
	assert.NotZero(t, msg.Timestamp)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", data["user_id"])
}

func TestWebSocketPingAndUnknownMessage(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	// Shadow users may connect before registering.
	conn, _, err := dialWS(t, srv, "token-carol")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return api.hub.IsOnline("carol") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(services.WSMessage{Type: services.EventPing}))
	assert.Equal(t, services.EventPong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(services.WSMessage{Type: "dance"}))
	msg := readMessage(t, conn)
	assert.Equal(t, services.EventError, msg.Type)
	assert.Equal(t, "Unknown message type", msg.Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readMessage(t, conn)
	assert.Equal(t, services.EventError, msg.Type)
	assert.Equal(t, "Invalid message format", msg.Message)
}

func TestWebSocketUnregistersOnClose(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	conn, _, err := dialWS(t, srv, "token-dave")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return api.hub.IsOnline("dave") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !api.hub.IsOnline("dave") }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.True(t, originChecker([]string{"*"})(req))
}
