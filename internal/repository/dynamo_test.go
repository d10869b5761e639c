package repository

import (
	"testing"
	"time"

	"scorer-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2, 3}}, chunk([]int{1, 2, 3}, 3))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunk([]int{1, 2, 3, 4, 5}, 2))
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, dedupe([]string{"b", "a", "b", "c", "a"}))
}

func TestEncodeMatchRoundTripsAndAddsIDSets(t *testing.T) {
	created := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	match := &models.Match{
		MatchID:   "m1",
		Date:      "2025-04-02",
		Time:      "19:00",
		Location:  "Park",
		Format:    models.FormatF7,
		CreatedBy: "a",
		Players: []models.PlayerStat{
			{UserID: "a", Username: "alice", Team: models.TeamA, Goals: 2},
			{UserID: "b", Team: models.TeamB, Assists: 1},
		},
		Score:       models.Score{TeamA: 2},
		Validations: []models.Validation{{UserID: "b", Timestamp: created, Skipped: true}},
		Version:     3,
		CreatedAt:   created,
	}

	item, err := encodeMatch(match)
	require.NoError(t, err)

	players, ok := item[playerIDsAttr].(*types.AttributeValueMemberSS)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, players.Value)
	validators, ok := item[validatorIDsAttr].(*types.AttributeValueMemberSS)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, validators.Value)

	decoded, err := decodeMatch(item)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Version)
	assert.Equal(t, "", decoded.Players[0].Username)
	assert.Equal(t, match.Score, decoded.Score)
	assert.True(t, decoded.Validations[0].Skipped)
}

func TestEncodeMatchOmitsEmptyIDSets(t *testing.T) {
	item, err := encodeMatch(&models.Match{MatchID: "m2", Format: models.FormatF5})
	require.NoError(t, err)

	assert.NotContains(t, item, playerIDsAttr)
	assert.NotContains(t, item, validatorIDsAttr)
}

func TestRelationValid(t *testing.T) {
	assert.True(t, RelationFriends.Valid())
	assert.True(t, RelationPendingSent.Valid())
	assert.True(t, RelationPendingReceived.Valid())
	assert.False(t, Relation("friends; DROP TABLE users").Valid())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
