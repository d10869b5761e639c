// Package validation decides when a recorded match becomes confirmed.
//
// All functions operate on an in-memory match and leave it untouched when
// they return an error. Persistence is the caller's job.
package validation

import (
	"time"

	"scorer-backend/internal/models"
)

// IsConfirmed reports whether the match has enough validations to be
// confirmed: at least half of the players, i.e. validations*2 >= players.
// Every validation entry counts, skipped ones included.
func IsConfirmed(m *models.Match) bool {
	if len(m.Players) == 0 {
		return false
	}
	return len(m.Validations)*2 >= len(m.Players)
}

// SubmitValidation records submitterID's confirmation of the match.
func SubmitValidation(m *models.Match, submitterID string, now time.Time) error {
	if !m.HasPlayer(submitterID) {
		return models.ErrNotParticipant
	}
	if m.HasValidationFrom(submitterID) {
		return models.ErrAlreadyValidated
	}

	m.Validations = append(m.Validations, models.Validation{
		UserID:    submitterID,
		Timestamp: now,
	})
	if IsConfirmed(m) {
		m.IsValidated = true
	}
	return nil
}

// AddPlayer appends submitterID to the match with their own stat line.
// Joining counts as confirming, and a match with two or more players is
// confirmed immediately regardless of IsConfirmed.
func AddPlayer(m *models.Match, stat models.PlayerStat, submitterID string, now time.Time) error {
	if m.HasPlayer(submitterID) {
		return models.ErrDuplicatePlayer
	}

	stat.UserID = submitterID
	stat.Username = ""
	if stat.Team == "" {
		stat.Team = models.TeamA
	}
	if err := CheckPlayerStat(stat); err != nil {
		return err
	}

	m.Players = append(m.Players, stat)
	m.Score = ScoreFromGoals(m.Players)

	confirmWithin(m, submitterID, now)
	if len(m.Players) >= 2 {
		m.IsValidated = true
	}
	return nil
}

// confirmWithin records a confirming entry for userID. An earlier skip is
// replaced in place so each participant keeps a single entry.
func confirmWithin(m *models.Match, userID string, now time.Time) {
	for i, v := range m.Validations {
		if v.UserID != userID {
			continue
		}
		if v.Skipped {
			m.Validations[i] = models.Validation{UserID: userID, Timestamp: now}
		}
		return
	}
	m.Validations = append(m.Validations, models.Validation{UserID: userID, Timestamp: now})
}

// SkipValidation records that submitterID declines to confirm the match,
// typically because they were listed but did not play. It checks neither
// participation nor earlier entries and never changes IsValidated.
func SkipValidation(m *models.Match, submitterID string, now time.Time) {
	m.Validations = append(m.Validations, models.Validation{
		UserID:    submitterID,
		Timestamp: now,
		Skipped:   true,
	})
}

// ScoreFromGoals sums player goals per team.
func ScoreFromGoals(players []models.PlayerStat) models.Score {
	var s models.Score
	for _, p := range players {
		switch p.Team {
		case models.TeamA:
			s.TeamA += p.Goals
		case models.TeamB:
			s.TeamB += p.Goals
		}
	}
	return s
}

// CheckPlayerStat rejects stat lines that cannot be stored.
func CheckPlayerStat(p models.PlayerStat) error {
	if p.UserID == "" {
		return models.NewValidationError("player user_id is required")
	}
	if !p.Team.Valid() {
		return models.NewValidationError("team must be A or B")
	}
	if p.Goals < 0 || p.Assists < 0 {
		return models.NewValidationError("goals and assists must not be negative")
	}
	return nil
}
