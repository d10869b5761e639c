package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"scorer-backend/internal/models"
)

// MemoryUserStore is an in-process UserStore for local runs and tests
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewMemoryUserStore creates an empty in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.Username != nil {
		name := *u.Username
		c.Username = &name
	}
	c.Friends = slices.Clone(u.Friends)
	c.PendingSentRequests = slices.Clone(u.PendingSentRequests)
	c.PendingReceivedRequests = slices.Clone(u.PendingReceivedRequests)
	return &c
}

// GetByAuthID retrieves a user by identity subject id
func (s *MemoryUserStore) GetByAuthID(_ context.Context, authID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[authID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return copyUser(u), nil
}

// GetByUsername retrieves a user by exact username
func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username != nil && *u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", ErrNotFound)
}

// ListByAuthIDs retrieves every user whose id is in authIDs
func (s *MemoryUserStore) ListByAuthIDs(_ context.Context, authIDs []string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []*models.User
	for _, id := range dedupe(authIDs) {
		if u, ok := s.users[id]; ok {
			users = append(users, copyUser(u))
		}
	}
	slices.SortFunc(users, func(a, b *models.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return users, nil
}

// SearchByUsernamePrefix finds registered users whose username starts with
// prefix, case-insensitively
func (s *MemoryUserStore) SearchByUsernamePrefix(_ context.Context, prefix, excludeAuthID string, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix = strings.ToLower(prefix)
	var users []*models.User
	for _, u := range s.users {
		if u.AuthID == excludeAuthID || !u.IsRegistered() {
			continue
		}
		if strings.HasPrefix(strings.ToLower(*u.Username), prefix) {
			users = append(users, copyUser(u))
		}
	}
	slices.SortFunc(users, func(a, b *models.User) int {
		return strings.Compare(a.DisplayName(), b.DisplayName())
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Create inserts a new user
func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.AuthID]; exists {
		return fmt.Errorf("failed to create user: %w", ErrDuplicate)
	}
	if user.Username != nil {
		for _, u := range s.users {
			if u.Username != nil && *u.Username == *user.Username {
				return fmt.Errorf("failed to create user: %w", ErrDuplicate)
			}
		}
	}
	s.users[user.AuthID] = copyUser(user)
	return nil
}

// SetProfile completes registration of an existing user
func (s *MemoryUserStore) SetProfile(_ context.Context, authID, username, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[authID]
	if !ok {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	for _, other := range s.users {
		if other.AuthID != authID && other.Username != nil && *other.Username == username {
			return fmt.Errorf("failed to set username: %w", ErrDuplicate)
		}
	}
	u.Username = &username
	u.Email = email
	u.CreatedAt = time.Now()
	return nil
}

func relationList(u *models.User, rel Relation) *[]string {
	switch rel {
	case RelationFriends:
		return &u.Friends
	case RelationPendingSent:
		return &u.PendingSentRequests
	default:
		return &u.PendingReceivedRequests
	}
}

func (s *MemoryUserStore) update(authID string, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[authID]
	if !ok {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	fn(u)
	return nil
}

// AddRelation adds otherID to one of the user's relationship lists
func (s *MemoryUserStore) AddRelation(_ context.Context, authID string, rel Relation, otherID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return s.update(authID, func(u *models.User) {
		l := relationList(u, rel)
		if !slices.Contains(*l, otherID) {
			*l = append(*l, otherID)
		}
	})
}

// RemoveRelation removes otherID from one of the user's relationship lists
func (s *MemoryUserStore) RemoveRelation(_ context.Context, authID string, rel Relation, otherID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return s.update(authID, func(u *models.User) {
		l := relationList(u, rel)
		*l = slices.DeleteFunc(*l, func(id string) bool { return id == otherID })
	})
}

// MoveRelation moves otherID between two lists in one step
func (s *MemoryUserStore) MoveRelation(_ context.Context, authID string, from, to Relation, otherID string) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("unknown relation %q -> %q", from, to)
	}
	return s.update(authID, func(u *models.User) {
		src := relationList(u, from)
		*src = slices.DeleteFunc(*src, func(id string) bool { return id == otherID })
		dst := relationList(u, to)
		if !slices.Contains(*dst, otherID) {
			*dst = append(*dst, otherID)
		}
	})
}

// Ping always succeeds
func (s *MemoryUserStore) Ping(context.Context) error {
	return nil
}

// MemoryMatchStore is an in-process MatchStore for local runs and tests
type MemoryMatchStore struct {
	mu      sync.RWMutex
	matches map[string]*models.Match
}

// NewMemoryMatchStore creates an empty in-memory match store
func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{matches: make(map[string]*models.Match)}
}

// Create inserts a new match at version 1
func (s *MemoryMatchStore) Create(_ context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[match.MatchID]; exists {
		return fmt.Errorf("failed to create match: %w", ErrDuplicate)
	}
	match.Version = 1
	s.matches[match.MatchID] = match.Clone()
	return nil
}

// GetByID retrieves a match by ID
func (s *MemoryMatchStore) GetByID(_ context.Context, matchID string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match not found: %w", ErrNotFound)
	}
	return m.Clone(), nil
}

// Save replaces the match if the stored version still matches
func (s *MemoryMatchStore) Save(_ context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.matches[match.MatchID]
	if !ok {
		return fmt.Errorf("match not found: %w", ErrNotFound)
	}
	if stored.Version != match.Version {
		return fmt.Errorf("failed to save match %s: %w", match.MatchID, ErrVersionConflict)
	}
	match.Version++
	s.matches[match.MatchID] = match.Clone()
	return nil
}

func (s *MemoryMatchStore) filter(keep func(*models.Match) bool) []*models.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Match
	for _, m := range s.matches {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sortNewestFirst(out)
	return out
}

// ListByUser retrieves matches created by or played by userID
func (s *MemoryMatchStore) ListByUser(_ context.Context, userID string) ([]*models.Match, error) {
	return s.filter(func(m *models.Match) bool {
		return m.CreatedBy == userID || m.HasPlayer(userID)
	}), nil
}

// ListValidatedByPlayers retrieves validated matches in which any of
// playerIDs played, optionally restricted to dates starting with datePrefix
func (s *MemoryMatchStore) ListValidatedByPlayers(_ context.Context, playerIDs []string, datePrefix string) ([]*models.Match, error) {
	return s.filter(func(m *models.Match) bool {
		if !m.IsValidated || !strings.HasPrefix(m.Date, datePrefix) {
			return false
		}
		return slices.ContainsFunc(playerIDs, m.HasPlayer)
	}), nil
}

// ListAwaitingValidation retrieves matches created by any of creatorIDs
// that carry no validation entry from userID
func (s *MemoryMatchStore) ListAwaitingValidation(_ context.Context, creatorIDs []string, userID string) ([]*models.Match, error) {
	return s.filter(func(m *models.Match) bool {
		return slices.Contains(creatorIDs, m.CreatedBy) && !m.HasValidationFrom(userID)
	}), nil
}

// Len returns the number of stored matches
func (s *MemoryMatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
