package repository

import (
	"context"
	"errors"

	"scorer-backend/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict is returned when a match was saved by someone else
	// since it was read
	ErrVersionConflict = errors.New("document version conflict")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate document")
)

// Relation names one of a user's relationship lists
type Relation string

const (
	RelationFriends         Relation = "friends"
	RelationPendingSent     Relation = "pending_sent_requests"
	RelationPendingReceived Relation = "pending_received_requests"
)

// Valid reports whether r names a known relationship list
func (r Relation) Valid() bool {
	switch r {
	case RelationFriends, RelationPendingSent, RelationPendingReceived:
		return true
	}
	return false
}

// UserStore persists user documents. Every method touches a single
// document; mirrored edits across two users are two calls.
type UserStore interface {
	GetByAuthID(ctx context.Context, authID string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByAuthIDs(ctx context.Context, authIDs []string) ([]*models.User, error)
	SearchByUsernamePrefix(ctx context.Context, prefix, excludeAuthID string, limit int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetProfile(ctx context.Context, authID, username, email string) error
	AddRelation(ctx context.Context, authID string, rel Relation, otherID string) error
	RemoveRelation(ctx context.Context, authID string, rel Relation, otherID string) error
	MoveRelation(ctx context.Context, authID string, from, to Relation, otherID string) error
	Ping(ctx context.Context) error
}

// MatchStore persists match documents
type MatchStore interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, matchID string) (*models.Match, error)
	// Save replaces the stored match if its version still equals
	// match.Version, then increments match.Version.
	Save(ctx context.Context, match *models.Match) error
	ListByUser(ctx context.Context, userID string) ([]*models.Match, error)
	ListValidatedByPlayers(ctx context.Context, playerIDs []string, datePrefix string) ([]*models.Match, error)
	ListAwaitingValidation(ctx context.Context, creatorIDs []string, userID string) ([]*models.Match, error)
}
