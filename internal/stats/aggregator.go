// Package stats folds validated matches into career totals and friend
// leaderboards.
package stats

import (
	"cmp"
	"slices"
	"strings"

	"scorer-backend/internal/models"
)

// Result is a player's outcome in a single match
type Result int

const (
	Loss Result = iota
	Draw
	Win
)

// Peer is a leaderboard participant: the viewer or one of their friends.
type Peer struct {
	UserID   string
	Username string
}

// Outcome compares team's score to the opposing score.
func Outcome(m *models.Match, team models.Team) Result {
	own, other := m.Score.For(team), m.Score.Against(team)
	switch {
	case own > other:
		return Win
	case own == other:
		return Draw
	default:
		return Loss
	}
}

// GoalBonus converts a player's goals in one match into leaderboard points.
// Large formats (F8 and up) pay a point per goal, small ones a point per
// two goals.
func GoalBonus(format models.Format, goals int) int {
	switch format {
	case models.FormatF8, models.FormatF9, models.FormatF10, models.FormatF11:
		return goals
	default:
		return goals / 2
	}
}

// ComputeUserStats summarises userID's validated matches.
func ComputeUserStats(userID string, matches []*models.Match) models.UserStats {
	s := models.UserStats{ByFormat: make(map[models.Format]int, len(models.Formats))}
	for _, f := range models.Formats {
		s.ByFormat[f] = 0
	}

	for _, m := range matches {
		if !m.IsValidated {
			continue
		}
		p, ok := m.Player(userID)
		if !ok {
			continue
		}

		s.TotalMatches++
		s.ByFormat[m.Format]++
		s.Goals += p.Goals
		s.Assists += p.Assists

		switch Outcome(m, p.Team) {
		case Win:
			s.Wins++
		case Loss:
			s.Losses++
		default:
			s.Draws++
		}
	}
	return s
}

// ComputeLeaderboard ranks peers over the validated matches they played.
// When year is non-empty only matches whose date starts with it count.
// Peers without a counted match are left out of the result.
func ComputeLeaderboard(peers []Peer, matches []*models.Match, year string) []models.LeaderboardEntry {
	rows := make([]models.LeaderboardEntry, 0, len(peers))
	index := make(map[string]int, len(peers))
	for _, p := range peers {
		if _, dup := index[p.UserID]; dup {
			continue
		}
		index[p.UserID] = len(rows)
		rows = append(rows, models.LeaderboardEntry{UserID: p.UserID, Username: p.Username})
	}
	bonus := make([]int, len(rows))

	for _, m := range matches {
		if !m.IsValidated {
			continue
		}
		if year != "" && !strings.HasPrefix(m.Date, year) {
			continue
		}

		for _, p := range m.Players {
			i, ok := index[p.UserID]
			if !ok {
				continue
			}
			row := &rows[i]
			row.MatchesPlayed++
			row.Goals += p.Goals
			row.Assists += p.Assists

			switch Outcome(m, p.Team) {
			case Win:
				row.Wins++
			case Draw:
				row.Draws++
			default:
				row.Losses++
			}

			bonus[i] += GoalBonus(m.Format, p.Goals)
			row.Points = 3*row.Wins + bonus[i]
		}
	}

	slices.SortStableFunc(rows, func(a, b models.LeaderboardEntry) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(b.Goals, a.Goals)
	})

	return slices.DeleteFunc(rows, func(r models.LeaderboardEntry) bool {
		return r.MatchesPlayed == 0
	})
}
