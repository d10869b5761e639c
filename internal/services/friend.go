package services

import (
	"context"
	"errors"
	"fmt"

	"scorer-backend/internal/cache"
	"scorer-backend/internal/models"
	"scorer-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const searchLimit = 10

var (
	// ErrSelfFriendRequest is returned when a user targets themselves
	ErrSelfFriendRequest = models.NewValidationError("You cannot send a friend request to yourself")

	// ErrAlreadyFriends is returned when the target is already a friend
	ErrAlreadyFriends = models.NewConflictError("Already friends with this user")

	// ErrRequestAlreadySent is returned when a request to the target is still pending
	ErrRequestAlreadySent = models.NewConflictError("Friend request already sent")

	// ErrRequestFromTarget is returned when the target already sent a request to the caller
	ErrRequestFromTarget = models.NewConflictError("User has already sent you a friend request")

	// ErrNoPendingRequest is returned when accepting or declining a request that does not exist
	ErrNoPendingRequest = models.NewConflictError("No pending request from this user")

	// ErrNotInFriendsList is returned when removing a user who is not a friend
	ErrNotInFriendsList = models.NewConflictError("This user is not in your friends list")
)

// FriendService manages friend requests and friendships. Every change
// touches two user documents with two single-document updates.
type FriendService struct {
	users    repository.UserStore
	notifier Notifier
	boards   *cache.LeaderboardCache
}

// NewFriendService creates a new friend service. notifier and boards may
// be nil.
func NewFriendService(users repository.UserStore, notifier Notifier, boards *cache.LeaderboardCache) *FriendService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &FriendService{
		users:    users,
		notifier: notifier,
		boards:   boards,
	}
}

// SendRequest sends a friend request from me to targetID
func (s *FriendService) SendRequest(ctx context.Context, me *models.User, targetID string) error {
	if targetID == "" {
		return models.NewValidationError("user_id is required")
	}
	if targetID == me.AuthID {
		return ErrSelfFriendRequest
	}
	if _, err := s.loadUser(ctx, targetID); err != nil {
		return err
	}

	switch {
	case me.IsFriend(targetID):
		return ErrAlreadyFriends
	case me.HasSentRequestTo(targetID):
		return ErrRequestAlreadySent
	case me.HasRequestFrom(targetID):
		return ErrRequestFromTarget
	}

	if err := s.users.AddRelation(ctx, me.AuthID, repository.RelationPendingSent, targetID); err != nil {
		return fmt.Errorf("failed to record sent request: %w", err)
	}
	if err := s.users.AddRelation(ctx, targetID, repository.RelationPendingReceived, me.AuthID); err != nil {
		return fmt.Errorf("failed to record received request: %w", err)
	}

	log.Info().Str("user_id", me.AuthID).Str("target_id", targetID).Msg("Friend request sent")
	s.notifier.Notify(targetID, WSMessage{
		Type: EventFriendRequest,
		Data: map[string]string{"user_id": me.AuthID, "username": me.DisplayName()},
	})
	return nil
}

// AcceptRequest turns a pending request from fromID into a friendship
func (s *FriendService) AcceptRequest(ctx context.Context, me *models.User, fromID string) error {
	if !me.HasRequestFrom(fromID) {
		return ErrNoPendingRequest
	}

	if err := s.users.MoveRelation(ctx, me.AuthID, repository.RelationPendingReceived, repository.RelationFriends, fromID); err != nil {
		return fmt.Errorf("failed to accept request: %w", err)
	}
	if err := s.users.MoveRelation(ctx, fromID, repository.RelationPendingSent, repository.RelationFriends, me.AuthID); err != nil {
		return fmt.Errorf("failed to accept request: %w", err)
	}

	s.boards.Invalidate(ctx, me.AuthID, fromID)
	log.Info().Str("user_id", me.AuthID).Str("friend_id", fromID).Msg("Friend request accepted")
	s.notifier.Notify(fromID, WSMessage{
		Type: EventFriendAccepted,
		Data: map[string]string{"user_id": me.AuthID, "username": me.DisplayName()},
	})
	return nil
}

// DeclineRequest drops a pending request from fromID
func (s *FriendService) DeclineRequest(ctx context.Context, me *models.User, fromID string) error {
	if !me.HasRequestFrom(fromID) {
		return ErrNoPendingRequest
	}

	if err := s.users.RemoveRelation(ctx, me.AuthID, repository.RelationPendingReceived, fromID); err != nil {
		return fmt.Errorf("failed to decline request: %w", err)
	}
	if err := s.users.RemoveRelation(ctx, fromID, repository.RelationPendingSent, me.AuthID); err != nil {
		return fmt.Errorf("failed to decline request: %w", err)
	}

	log.Info().Str("user_id", me.AuthID).Str("from_id", fromID).Msg("Friend request declined")
	return nil
}

// RemoveFriend ends a friendship on both sides
func (s *FriendService) RemoveFriend(ctx context.Context, me *models.User, friendID string) error {
	if !me.IsFriend(friendID) {
		return ErrNotInFriendsList
	}

	if err := s.users.RemoveRelation(ctx, me.AuthID, repository.RelationFriends, friendID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	if err := s.users.RemoveRelation(ctx, friendID, repository.RelationFriends, me.AuthID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}

	s.boards.Invalidate(ctx, me.AuthID, friendID)
	log.Info().Str("user_id", me.AuthID).Str("friend_id", friendID).Msg("Friend removed")
	return nil
}

// ListFriends returns my friends
func (s *FriendService) ListFriends(ctx context.Context, me *models.User) ([]models.FriendView, error) {
	return s.views(ctx, me, me.Friends)
}

// ListReceived returns users whose requests await my answer
func (s *FriendService) ListReceived(ctx context.Context, me *models.User) ([]models.FriendView, error) {
	return s.views(ctx, me, me.PendingReceivedRequests)
}

// ListSent returns users I have sent requests to
func (s *FriendService) ListSent(ctx context.Context, me *models.User) ([]models.FriendView, error) {
	return s.views(ctx, me, me.PendingSentRequests)
}

// Search finds registered users by case-insensitive username prefix
func (s *FriendService) Search(ctx context.Context, me *models.User, query string) ([]models.FriendView, error) {
	users, err := s.users.SearchByUsernamePrefix(ctx, query, me.AuthID, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return viewsOf(me, users), nil
}

func (s *FriendService) views(ctx context.Context, me *models.User, ids []string) ([]models.FriendView, error) {
	if len(ids) == 0 {
		return []models.FriendView{}, nil
	}
	users, err := s.users.ListByAuthIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return viewsOf(me, users), nil
}

func viewsOf(me *models.User, users []*models.User) []models.FriendView {
	views := make([]models.FriendView, 0, len(users))
	for _, u := range users {
		views = append(views, me.ViewOf(u))
	}
	return views
}

func (s *FriendService) loadUser(ctx context.Context, authID string) (*models.User, error) {
	user, err := s.users.GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
