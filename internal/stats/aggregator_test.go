package stats

import (
	"testing"

	"scorer-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func player(id string, team models.Team, goals, assists int) models.PlayerStat {
	return models.PlayerStat{UserID: id, Team: team, Goals: goals, Assists: assists}
}

func validated(date string, format models.Format, a, b int, players ...models.PlayerStat) *models.Match {
	return &models.Match{
		Date:        date,
		Format:      format,
		Score:       models.Score{TeamA: a, TeamB: b},
		Players:     players,
		IsValidated: true,
	}
}

func TestGoalBonus(t *testing.T) {
	tests := []struct {
		format models.Format
		goals  int
		want   int
	}{
		{models.FormatF5, 3, 1},
		{models.FormatF6, 2, 1},
		{models.FormatF7, 1, 0},
		{models.FormatF8, 3, 3},
		{models.FormatF9, 3, 3},
		{models.FormatF10, 0, 0},
		{models.FormatF11, 5, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GoalBonus(tt.format, tt.goals), "%s with %d goals", tt.format, tt.goals)
	}
}

func TestOutcome(t *testing.T) {
	m := &models.Match{Score: models.Score{TeamA: 3, TeamB: 1}}
	assert.Equal(t, Win, Outcome(m, models.TeamA))
	assert.Equal(t, Loss, Outcome(m, models.TeamB))

	m.Score = models.Score{TeamA: 2, TeamB: 2}
	assert.Equal(t, Draw, Outcome(m, models.TeamA))
	assert.Equal(t, Draw, Outcome(m, models.TeamB))
}

func TestComputeUserStats(t *testing.T) {
	matches := []*models.Match{
		validated("2025-01-04", models.FormatF5, 3, 1, player("u", models.TeamA, 2, 1), player("x", models.TeamB, 1, 0)),
		validated("2025-02-04", models.FormatF5, 3, 1, player("u", models.TeamB, 1, 2)),
		validated("2025-03-04", models.FormatF11, 0, 0, player("u", models.TeamA, 0, 0)),
		validated("2025-03-05", models.FormatF7, 1, 0, player("x", models.TeamA, 1, 0)),
		{Format: models.FormatF9, Score: models.Score{TeamA: 9}, Players: []models.PlayerStat{player("u", models.TeamA, 9, 9)}},
	}

	s := ComputeUserStats("u", matches)

	assert.Equal(t, 3, s.TotalMatches)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 1, s.Draws)
	assert.Equal(t, 3, s.Goals)
	assert.Equal(t, 3, s.Assists)
	assert.Equal(t, map[models.Format]int{
		models.FormatF5: 2, models.FormatF6: 0, models.FormatF7: 0, models.FormatF8: 0,
		models.FormatF9: 0, models.FormatF10: 0, models.FormatF11: 1,
	}, s.ByFormat)
}

func TestComputeUserStatsEmpty(t *testing.T) {
	s := ComputeUserStats("u", nil)
	assert.Zero(t, s.TotalMatches)
	assert.Len(t, s.ByFormat, 7)
}

func TestLeaderboardSmallFormatWin(t *testing.T) {
	m := validated("2025-05-01", models.FormatF6, 2, 1,
		player("p", models.TeamA, 2, 0),
		player("q", models.TeamA, 0, 0),
		player("r", models.TeamB, 1, 0),
	)

	rows := ComputeLeaderboard([]Peer{{UserID: "p", Username: "pat"}}, []*models.Match{m}, "")

	require.Len(t, rows, 1)
	assert.Equal(t, models.LeaderboardEntry{
		UserID: "p", Username: "pat", MatchesPlayed: 1, Wins: 1, Goals: 2, Points: 3 + 1,
	}, rows[0])
}

func TestLeaderboardLargeFormatDraw(t *testing.T) {
	m := validated("2025-05-01", models.FormatF9, 3, 3,
		player("p", models.TeamA, 3, 1),
		player("r", models.TeamB, 3, 0),
	)

	rows := ComputeLeaderboard([]Peer{{UserID: "p"}}, []*models.Match{m}, "")

	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Wins)
	assert.Equal(t, 1, rows[0].Draws)
	assert.Equal(t, 3, rows[0].Points)
}

func TestLeaderboardAccumulatesGoalBonusAcrossMatches(t *testing.T) {
	matches := []*models.Match{
		validated("2025-01-01", models.FormatF9, 2, 0, player("p", models.TeamA, 2, 0)),
		validated("2025-01-08", models.FormatF5, 1, 3, player("p", models.TeamB, 3, 0)),
		validated("2025-01-15", models.FormatF5, 0, 1, player("p", models.TeamA, 0, 0)),
	}

	rows := ComputeLeaderboard([]Peer{{UserID: "p"}}, matches, "")

	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].MatchesPlayed)
	assert.Equal(t, 2, rows[0].Wins)
	assert.Equal(t, 1, rows[0].Losses)
	assert.Equal(t, 3*2+2+1, rows[0].Points)
}

func TestLeaderboardOrderingAndFiltering(t *testing.T) {
	peers := []Peer{
		{UserID: "idle", Username: "idle"},
		{UserID: "a", Username: "alice"},
		{UserID: "b", Username: "bob"},
		{UserID: "c", Username: "carol"},
		{UserID: "d", Username: "dave"},
	}
	matches := []*models.Match{
		// a and b win 1-0; c and d lose.
		validated("2025-03-01", models.FormatF8, 1, 0,
			player("a", models.TeamA, 1, 0),
			player("b", models.TeamA, 0, 0),
			player("c", models.TeamB, 0, 0),
			player("d", models.TeamB, 0, 0),
			player("outsider", models.TeamB, 0, 0),
		),
		// c scores 3 in a large-format loss: 3 points, same as b but fewer wins.
		validated("2025-03-08", models.FormatF8, 0, 4,
			player("c", models.TeamA, 3, 0),
			player("outsider", models.TeamB, 4, 0),
		),
		// previous year, excluded by the filter.
		validated("2024-12-31", models.FormatF11, 9, 0, player("d", models.TeamA, 9, 0)),
		// unvalidated, always excluded.
		{Date: "2025-04-01", Format: models.FormatF11, Score: models.Score{TeamA: 5}, Players: []models.PlayerStat{player("d", models.TeamA, 5, 0)}},
	}

	rows := ComputeLeaderboard(peers, matches, "2025")

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
		assert.NotZero(t, r.MatchesPlayed)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, 4, rows[0].Points)
	assert.Equal(t, 3, rows[1].Points)
	assert.Equal(t, 3, rows[2].Points)
	assert.Equal(t, 0, rows[3].Points)

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		ok := prev.Points > cur.Points ||
			(prev.Points == cur.Points && prev.Wins > cur.Wins) ||
			(prev.Points == cur.Points && prev.Wins == cur.Wins && prev.Goals >= cur.Goals)
		assert.True(t, ok, "rows %d and %d out of order", i-1, i)
	}
}

func TestLeaderboardWithoutYearCountsEverything(t *testing.T) {
	matches := []*models.Match{
		validated("2024-12-31", models.FormatF11, 1, 0, player("d", models.TeamA, 1, 0)),
		validated("2025-01-01", models.FormatF11, 1, 0, player("d", models.TeamA, 1, 0)),
	}

	rows := ComputeLeaderboard([]Peer{{UserID: "d"}}, matches, "")

	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].MatchesPlayed)
}

func TestLeaderboardDropsPeersWithoutMatches(t *testing.T) {
	rows := ComputeLeaderboard([]Peer{{UserID: "a"}, {UserID: "b"}}, nil, "")
	assert.Empty(t, rows)
}
