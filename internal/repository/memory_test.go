package repository

import (
	"context"
	"testing"
	"time"

	"scorer-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestMemoryUserStoreRelations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "a", Username: ptr("alice")}))
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "b", Username: ptr("bob")}))

	require.NoError(t, s.AddRelation(ctx, "a", RelationPendingSent, "b"))
	require.NoError(t, s.AddRelation(ctx, "a", RelationPendingSent, "b"))
	a, err := s.GetByAuthID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, a.PendingSentRequests)

	require.NoError(t, s.MoveRelation(ctx, "a", RelationPendingSent, RelationFriends, "b"))
	a, err = s.GetByAuthID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, a.PendingSentRequests)
	assert.Equal(t, []string{"b"}, a.Friends)

	require.NoError(t, s.RemoveRelation(ctx, "a", RelationFriends, "b"))
	a, err = s.GetByAuthID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, a.Friends)

	assert.ErrorIs(t, s.AddRelation(ctx, "missing", RelationFriends, "a"), ErrNotFound)
	assert.ErrorIs(t, s.RemoveRelation(ctx, "missing", RelationFriends, "a"), ErrNotFound)
	assert.ErrorIs(t, s.MoveRelation(ctx, "missing", RelationPendingSent, RelationFriends, "a"), ErrNotFound)
	assert.Error(t, s.AddRelation(ctx, "a", Relation("bogus"), "b"))
}

func TestMemoryUserStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "a", Username: ptr("alice")}))

	a, err := s.GetByAuthID(ctx, "a")
	require.NoError(t, err)
	*a.Username = "mallory"
	a.Friends = append(a.Friends, "x")

	again, err := s.GetByAuthID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.DisplayName())
	assert.Empty(t, again.Friends)
}

func TestMemoryUserStoreUsernames(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "a", Username: ptr("Alice")}))
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "b", Username: ptr("alfred")}))
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "c", Username: ptr("bob")}))
	require.NoError(t, s.Create(ctx, &models.User{AuthID: "shadow"}))

	assert.ErrorIs(t, s.Create(ctx, &models.User{AuthID: "d", Username: ptr("bob")}), ErrDuplicate)
	assert.ErrorIs(t, s.SetProfile(ctx, "shadow", "bob", "x@example.com"), ErrDuplicate)

	found, err := s.SearchByUsernamePrefix(ctx, "AL", "b", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].AuthID)

	found, err = s.SearchByUsernamePrefix(ctx, "", "", 2)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	require.NoError(t, s.SetProfile(ctx, "shadow", "sam", "sam@example.com"))
	sam, err := s.GetByUsername(ctx, "sam")
	require.NoError(t, err)
	assert.Equal(t, "shadow", sam.AuthID)
	assert.Equal(t, "sam@example.com", sam.Email)
}

func TestMemoryMatchStoreVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMatchStore()
	m := &models.Match{MatchID: "m1", Format: models.FormatF5, CreatedBy: "a"}
	require.NoError(t, s.Create(ctx, m))
	assert.Equal(t, 1, m.Version)
	assert.ErrorIs(t, s.Create(ctx, m), ErrDuplicate)

	first, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)
	second, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)

	first.Location = "Park"
	require.NoError(t, s.Save(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Location = "Beach"
	assert.ErrorIs(t, s.Save(ctx, second), ErrVersionConflict)

	stored, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Park", stored.Location)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMatchStoreQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMatchStore()
	now := time.Now()
	seed := []*models.Match{
		{MatchID: "old", Date: "2024-06-01", CreatedBy: "a", IsValidated: true,
			Players: []models.PlayerStat{{UserID: "a", Team: models.TeamA}}, CreatedAt: now},
		{MatchID: "new", Date: "2025-03-01", CreatedBy: "b", IsValidated: true,
			Players:     []models.PlayerStat{{UserID: "b", Team: models.TeamA}, {UserID: "c", Team: models.TeamB}},
			Validations: []models.Validation{{UserID: "c"}}, CreatedAt: now},
		{MatchID: "pending", Date: "2025-04-01", CreatedBy: "b",
			Players: []models.PlayerStat{{UserID: "a", Team: models.TeamA}}, CreatedAt: now},
	}
	for _, m := range seed {
		require.NoError(t, s.Create(ctx, m))
	}

	ids := func(ms []*models.Match) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.MatchID)
		}
		return out
	}

	mine, err := s.ListByUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"pending", "old"}, ids(mine))

	validated, err := s.ListValidatedByPlayers(ctx, []string{"a", "c"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids(validated))

	validated, err = s.ListValidatedByPlayers(ctx, []string{"a", "c"}, "2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(validated))

	awaiting, err := s.ListAwaitingValidation(ctx, []string{"b"}, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"pending"}, ids(awaiting))
}
