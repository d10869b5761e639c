package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scorer-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `auth_id, username, email, friends, pending_sent_requests, pending_received_requests, created_at`

// UserRepository handles Postgres operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.AuthID, &user.Username, &user.Email,
		&user.Friends, &user.PendingSentRequests, &user.PendingReceivedRequests,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		user.AuthID, user.Username, user.Email,
		nonNil(user.Friends), nonNil(user.PendingSentRequests), nonNil(user.PendingReceivedRequests),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByAuthID retrieves a user by identity subject id
func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE auth_id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, authID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// ListByAuthIDs retrieves every user whose id is in authIDs
func (r *UserRepository) ListByAuthIDs(ctx context.Context, authIDs []string) ([]*models.User, error) {
	if len(authIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE auth_id = ANY($1) ORDER BY created_at`
	return r.queryUsers(ctx, query, authIDs)
}

// SearchByUsernamePrefix finds registered users whose username starts with
// prefix, case-insensitively
func (r *UserRepository) SearchByUsernamePrefix(ctx context.Context, prefix, excludeAuthID string, limit int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE $1 ESCAPE '\' AND auth_id <> $2
		ORDER BY username
		LIMIT $3
	`
	return r.queryUsers(ctx, query, escapeLike(prefix)+"%", excludeAuthID, limit)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SetProfile completes registration of an existing user
func (r *UserRepository) SetProfile(ctx context.Context, authID, username, email string) error {
	query := `UPDATE users SET username = $1, email = $2, created_at = now() WHERE auth_id = $3`
	result, err := r.db.Exec(ctx, query, username, email, authID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to set profile: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to set profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

// AddRelation appends otherID to one of the user's relationship lists
func (r *UserRepository) AddRelation(ctx context.Context, authID string, rel Relation, otherID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	query := fmt.Sprintf(`
		UPDATE users SET %[1]s = array_append(%[1]s, $1)
		WHERE auth_id = $2 AND NOT ($1 = ANY(%[1]s))
	`, rel)
	result, err := r.db.Exec(ctx, query, otherID, authID)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", rel, err)
	}
	// Zero rows means either a missing user or an id already in the list.
	return requireUser(ctx, r.db, result, authID)
}

// RemoveRelation removes otherID from one of the user's relationship lists
func (r *UserRepository) RemoveRelation(ctx context.Context, authID string, rel Relation, otherID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	query := fmt.Sprintf(`UPDATE users SET %[1]s = array_remove(%[1]s, $1) WHERE auth_id = $2`, rel)
	result, err := r.db.Exec(ctx, query, otherID, authID)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

// MoveRelation moves otherID between two of the user's lists in one statement
func (r *UserRepository) MoveRelation(ctx context.Context, authID string, from, to Relation, otherID string) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("unknown relation %q -> %q", from, to)
	}
	query := fmt.Sprintf(`
		UPDATE users SET
			%[1]s = array_remove(%[1]s, $1),
			%[2]s = CASE WHEN $1 = ANY(%[2]s) THEN %[2]s ELSE array_append(%[2]s, $1) END
		WHERE auth_id = $2
	`, from, to)
	result, err := r.db.Exec(ctx, query, otherID, authID)
	if err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", from, to, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

// Ping checks the connection
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// requireUser accepts an update that touched no row only when the user exists.
func requireUser(ctx context.Context, q rowQuerier, result pgconn.CommandTag, authID string) error {
	if result.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE auth_id = $1)`, authID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
