package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"scorer-backend/internal/models"
	"scorer-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	identities map[string]*Identity
}

func (v stubVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if id, ok := v.identities[token]; ok {
		return id, nil
	}
	return nil, ErrInvalidToken
}

type sentMessage struct {
	UserID  string
	Message WSMessage
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Notify(userID string, message WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{UserID: userID, Message: message})
}

func (n *recordingNotifier) recipients(eventType string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for _, s := range n.sent {
		if s.Message.Type == eventType {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

func strPtr(s string) *string { return &s }

// seedUsers stores a registered user per name, keyed by the name itself.
func seedUsers(t *testing.T, store *repository.MemoryUserStore, names ...string) {
	t.Helper()
	for i, name := range names {
		require.NoError(t, store.Create(context.Background(), &models.User{
			AuthID:    name,
			Username:  strPtr(name),
			Email:     name + "@example.com",
			CreatedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}
}

func reload(t *testing.T, store repository.UserStore, authID string) *models.User {
	t.Helper()
	u, err := store.GetByAuthID(context.Background(), authID)
	require.NoError(t, err)
	return u
}

func befriend(t *testing.T, store repository.UserStore, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AddRelation(ctx, a, repository.RelationFriends, b))
	require.NoError(t, store.AddRelation(ctx, b, repository.RelationFriends, a))
}
