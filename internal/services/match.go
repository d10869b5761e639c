package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"scorer-backend/internal/cache"
	"scorer-backend/internal/metrics"
	"scorer-backend/internal/models"
	"scorer-backend/internal/repository"
	"scorer-backend/internal/stats"
	"scorer-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	dateLayout      = "2006-01-02"
	unknownUsername = "Unknown"
	saveAttempts    = 3
)

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// CreateMatchInput is the payload for recording a new match
type CreateMatchInput struct {
	Date     string              `json:"date"`
	Time     string              `json:"time"`
	Location string              `json:"location"`
	Format   models.Format       `json:"format"`
	Players  []models.PlayerStat `json:"players"`
	Score    *models.Score       `json:"score"`
}

// AddPlayerInput is the caller's own stat line when joining a match
type AddPlayerInput struct {
	Team    models.Team `json:"team"`
	Goals   int         `json:"goals"`
	Assists int         `json:"assists"`
}

// MatchService handles match recording, validation and statistics
type MatchService struct {
	matches  repository.MatchStore
	users    repository.UserStore
	notifier Notifier
	boards   *cache.LeaderboardCache
	now      func() time.Time
}

// NewMatchService creates a new match service. notifier and boards may be
// nil.
func NewMatchService(matches repository.MatchStore, users repository.UserStore, notifier Notifier, boards *cache.LeaderboardCache) *MatchService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &MatchService{
		matches:  matches,
		users:    users,
		notifier: notifier,
		boards:   boards,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create records a new match created by me
func (s *MatchService) Create(ctx context.Context, me *models.User, in CreateMatchInput) (*models.Match, error) {
	date, err := normalizeDate(in.Date)
	if err != nil {
		return nil, err
	}
	if !in.Format.Valid() {
		return nil, models.NewValidationError("format must be one of F5, F6, F7, F8, F9, F10, F11")
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return nil, models.NewValidationError("location is required")
	}

	players := make([]models.PlayerStat, 0, len(in.Players))
	seen := make(map[string]struct{}, len(in.Players))
	for _, p := range in.Players {
		p.Username = ""
		if err := validation.CheckPlayerStat(p); err != nil {
			return nil, err
		}
		if _, dup := seen[p.UserID]; dup {
			return nil, models.NewValidationError(fmt.Sprintf("player %s is listed twice", p.UserID))
		}
		seen[p.UserID] = struct{}{}
		players = append(players, p)
	}

	score := validation.ScoreFromGoals(players)
	if in.Score != nil {
		if in.Score.TeamA < 0 || in.Score.TeamB < 0 {
			return nil, models.NewValidationError("score must not be negative")
		}
		score = *in.Score
	}

	match := &models.Match{
		MatchID:     uuid.New().String(),
		Date:        date,
		Time:        strings.TrimSpace(in.Time),
		Location:    location,
		Format:      in.Format,
		CreatedBy:   me.AuthID,
		Players:     players,
		Score:       score,
		Validations: []models.Validation{},
		CreatedAt:   s.now(),
	}
	if err := s.matches.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	log.Info().
		Str("user_id", me.AuthID).
		Str("match_id", match.MatchID).
		Int("players", len(players)).
		Msg("Match created")

	for _, p := range players {
		if p.UserID == me.AuthID {
			continue
		}
		s.notifier.Notify(p.UserID, WSMessage{
			Type: EventMatchCreated,
			Data: map[string]string{"match_id": match.MatchID, "created_by": me.AuthID},
		})
	}

	if err := s.enrich(ctx, match); err != nil {
		log.Warn().Err(err).Str("match_id", match.MatchID).Msg("Failed to resolve usernames")
	}
	return match, nil
}

// Get retrieves a match by ID
func (s *MatchService) Get(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, match); err != nil {
		return nil, err
	}
	return match, nil
}

// ListMine returns matches I created or played in, newest first
func (s *MatchService) ListMine(ctx context.Context, me *models.User) ([]*models.Match, error) {
	matches, err := s.matches.ListByUser(ctx, me.AuthID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if err := s.enrich(ctx, matches...); err != nil {
		return nil, err
	}
	return nonNilMatches(matches), nil
}

// ListPendingValidation returns matches created by my friends that carry
// no validation entry from me
func (s *MatchService) ListPendingValidation(ctx context.Context, me *models.User) ([]*models.Match, error) {
	if len(me.Friends) == 0 {
		return []*models.Match{}, nil
	}
	matches, err := s.matches.ListAwaitingValidation(ctx, me.Friends, me.AuthID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending matches: %w", err)
	}
	if err := s.enrich(ctx, matches...); err != nil {
		return nil, err
	}
	return nonNilMatches(matches), nil
}

// Validate records my confirmation of a match I played in
func (s *MatchService) Validate(ctx context.Context, me *models.User, matchID string) (*models.Match, error) {
	return s.mutate(ctx, matchID, "validate", func(m *models.Match) error {
		return validation.SubmitValidation(m, me.AuthID, s.now())
	})
}

// AddPlayer adds me to a match with my own stat line
func (s *MatchService) AddPlayer(ctx context.Context, me *models.User, matchID string, in AddPlayerInput) (*models.Match, error) {
	stat := models.PlayerStat{Team: in.Team, Goals: in.Goals, Assists: in.Assists}
	return s.mutate(ctx, matchID, "add_player", func(m *models.Match) error {
		return validation.AddPlayer(m, stat, me.AuthID, s.now())
	})
}

// SkipValidation records that I decline to confirm a match
func (s *MatchService) SkipValidation(ctx context.Context, me *models.User, matchID string) (*models.Match, error) {
	return s.mutate(ctx, matchID, "skip", func(m *models.Match) error {
		validation.SkipValidation(m, me.AuthID, s.now())
		return nil
	})
}

// Stats summarises my validated matches
func (s *MatchService) Stats(ctx context.Context, me *models.User) (models.UserStats, error) {
	matches, err := s.matches.ListValidatedByPlayers(ctx, []string{me.AuthID}, "")
	if err != nil {
		return models.UserStats{}, fmt.Errorf("failed to list validated matches: %w", err)
	}
	return stats.ComputeUserStats(me.AuthID, matches), nil
}

// Leaderboard ranks me and my friends, optionally within one year
func (s *MatchService) Leaderboard(ctx context.Context, me *models.User, year string) ([]models.LeaderboardEntry, error) {
	year = strings.TrimSpace(year)
	if year != "" && !yearPattern.MatchString(year) {
		return nil, models.NewValidationError("year must be a four-digit year")
	}

	if entries, ok := s.boards.Get(ctx, me.AuthID, year); ok {
		return entries, nil
	}

	peerIDs := append([]string{me.AuthID}, me.Friends...)
	snap := s.boards.Snapshot(ctx, peerIDs)
	users, err := s.users.ListByAuthIDs(ctx, peerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load peers: %w", err)
	}
	peers := make([]stats.Peer, 0, len(users))
	for _, u := range users {
		peers = append(peers, stats.Peer{UserID: u.AuthID, Username: u.DisplayName()})
	}

	matches, err := s.matches.ListValidatedByPlayers(ctx, peerIDs, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list validated matches: %w", err)
	}

	entries := stats.ComputeLeaderboard(peers, matches, year)
	s.boards.Set(ctx, me.AuthID, year, snap, entries)
	return entries, nil
}

// mutate applies fn to a fresh copy of the match and saves it, reloading
// and reapplying when another writer saved first.
func (s *MatchService) mutate(ctx context.Context, matchID, action string, fn func(m *models.Match) error) (*models.Match, error) {
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		match, err := s.load(ctx, matchID)
		if err != nil {
			return nil, err
		}
		wasValidated := match.IsValidated

		if err := fn(match); err != nil {
			metrics.RecordValidation(action, metrics.ResultRejected)
			return nil, err
		}

		err = s.matches.Save(ctx, match)
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Warn().Str("match_id", matchID).Int("attempt", attempt).Msg("Match changed during update, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save match: %w", err)
		}

		s.afterSave(ctx, match, action, wasValidated)
		if err := s.enrich(ctx, match); err != nil {
			log.Warn().Err(err).Str("match_id", matchID).Msg("Failed to resolve usernames")
		}
		return match, nil
	}

	metrics.RecordValidation(action, metrics.ResultConflict)
	return nil, models.ErrMatchChanged
}

func (s *MatchService) afterSave(ctx context.Context, match *models.Match, action string, wasValidated bool) {
	confirmedNow := !wasValidated && match.IsValidated
	if confirmedNow {
		metrics.RecordValidation(action, metrics.ResultConfirmed)
	} else {
		metrics.RecordValidation(action, metrics.ResultAccepted)
	}

	if match.IsValidated {
		s.boards.Invalidate(ctx, match.PlayerIDs()...)
	}
	if !confirmedNow {
		return
	}

	log.Info().Str("match_id", match.MatchID).Str("action", action).Msg("Match validated")
	for _, id := range match.PlayerIDs() {
		s.notifier.Notify(id, WSMessage{
			Type: EventMatchValidated,
			Data: map[string]string{"match_id": match.MatchID},
		})
	}
}

func (s *MatchService) load(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// enrich fills creator and player usernames, falling back to "Unknown"
// for users that are missing or unregistered.
func (s *MatchService) enrich(ctx context.Context, matches ...*models.Match) error {
	var ids []string
	for _, m := range matches {
		ids = append(ids, m.CreatedBy)
		ids = append(ids, m.PlayerIDs()...)
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.users.ListByAuthIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve usernames: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		if u.IsRegistered() {
			names[u.AuthID] = u.DisplayName()
		}
	}
	nameOf := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return unknownUsername
	}

	for _, m := range matches {
		m.CreatorUsername = nameOf(m.CreatedBy)
		for i := range m.Players {
			m.Players[i].Username = nameOf(m.Players[i].UserID)
		}
	}
	return nil
}

func normalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", models.NewValidationError("date is required")
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.Format(dateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(dateLayout), nil
	}
	return "", models.NewValidationError("date must be formatted as YYYY-MM-DD")
}

func nonNilMatches(matches []*models.Match) []*models.Match {
	if matches == nil {
		return []*models.Match{}
	}
	return matches
}
