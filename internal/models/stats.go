package models

// UserStats is a user's career summary over validated matches
type UserStats struct {
	TotalMatches int            `json:"total_matches"`
	Wins         int            `json:"wins"`
	Losses       int            `json:"losses"`
	Draws        int            `json:"draws"`
	Goals        int            `json:"goals"`
	Assists      int            `json:"assists"`
	ByFormat     map[Format]int `json:"by_format"`
}

// LeaderboardEntry is one peer's row in a friends leaderboard
type LeaderboardEntry struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	MatchesPlayed int    `json:"matches_played"`
	Wins          int    `json:"wins"`
	Draws         int    `json:"draws"`
	Losses        int    `json:"losses"`
	Goals         int    `json:"goals"`
	Assists       int    `json:"assists"`
	Points        int    `json:"points"`
}
