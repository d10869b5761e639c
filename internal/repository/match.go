package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scorer-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const matchColumns = `match_id, date, time, location, format, created_by, players, score_a, score_b, validations, is_validated, version, created_at`

// MatchRepository handles Postgres operations for matches. Players and
// validations are stored as JSONB, with their user ids mirrored into
// TEXT[] columns for membership queries.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var (
		match       models.Match
		players     []byte
		validations []byte
	)
	err := row.Scan(
		&match.MatchID, &match.Date, &match.Time, &match.Location, &match.Format, &match.CreatedBy,
		&players, &match.Score.TeamA, &match.Score.TeamB, &validations,
		&match.IsValidated, &match.Version, &match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(players, &match.Players); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}
	if err := json.Unmarshal(validations, &match.Validations); err != nil {
		return nil, fmt.Errorf("failed to decode validations: %w", err)
	}
	return &match, nil
}

func encodeLists(match *models.Match) (players, validations []byte, err error) {
	players, err = json.Marshal(nonNilSlice(match.Players))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode players: %w", err)
	}
	validations, err = json.Marshal(nonNilSlice(match.Validations))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode validations: %w", err)
	}
	return players, validations, nil
}

// Create inserts a new match at version 1
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	players, validations, err := encodeLists(match)
	if err != nil {
		return err
	}
	match.Version = 1

	query := `
		INSERT INTO matches (` + matchColumns + `, player_ids, validator_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Exec(ctx, query,
		match.MatchID, match.Date, match.Time, match.Location, match.Format, match.CreatedBy,
		players, match.Score.TeamA, match.Score.TeamB, validations,
		match.IsValidated, match.Version, match.CreatedAt,
		match.PlayerIDs(), match.ValidatorIDs(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create match: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE match_id = $1`
	match, err := scanMatch(r.db.QueryRow(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("match not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// Save replaces the mutable parts of a match if nobody saved it since it
// was read
func (r *MatchRepository) Save(ctx context.Context, match *models.Match) error {
	players, validations, err := encodeLists(match)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches SET
			players = $1, player_ids = $2, score_a = $3, score_b = $4,
			validations = $5, validator_ids = $6, is_validated = $7,
			version = version + 1
		WHERE match_id = $8 AND version = $9
	`
	result, err := r.db.Exec(ctx, query,
		players, match.PlayerIDs(), match.Score.TeamA, match.Score.TeamB,
		validations, match.ValidatorIDs(), match.IsValidated,
		match.MatchID, match.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, match.MatchID); err != nil {
			return err
		}
		return fmt.Errorf("failed to save match %s: %w", match.MatchID, ErrVersionConflict)
	}
	match.Version++
	return nil
}

// ListByUser retrieves matches created by or played by userID
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE created_by = $1 OR $1 = ANY(player_ids)
		ORDER BY date DESC, created_at DESC
	`
	return r.queryMatches(ctx, query, userID)
}

// ListValidatedByPlayers retrieves validated matches in which any of
// playerIDs played, optionally restricted to dates starting with datePrefix
func (r *MatchRepository) ListValidatedByPlayers(ctx context.Context, playerIDs []string, datePrefix string) ([]*models.Match, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE is_validated AND player_ids && $1 AND date LIKE $2
		ORDER BY date, created_at
	`
	return r.queryMatches(ctx, query, playerIDs, escapeLike(datePrefix)+"%")
}

// ListAwaitingValidation retrieves matches created by any of creatorIDs
// that carry no validation entry from userID
func (r *MatchRepository) ListAwaitingValidation(ctx context.Context, creatorIDs []string, userID string) ([]*models.Match, error) {
	if len(creatorIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE created_by = ANY($1) AND NOT ($2 = ANY(validator_ids))
		ORDER BY date DESC, created_at DESC
	`
	return r.queryMatches(ctx, query, creatorIDs, userID)
}

func (r *MatchRepository) queryMatches(ctx context.Context, query string, args ...any) ([]*models.Match, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
