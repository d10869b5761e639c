package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"scorer-backend/internal/models"
	"scorer-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const maxUsernameLength = 32

// UserService handles user-related business logic
type UserService struct {
	users    repository.UserStore
	verifier IdentityVerifier
}

// NewUserService creates a new user service
func NewUserService(users repository.UserStore, verifier IdentityVerifier) *UserService {
	return &UserService{
		users:    users,
		verifier: verifier,
	}
}

// Authenticate verifies the bearer token and returns the matching user.
// First contact creates a shadow user without a username.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByAuthID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	shadow := &models.User{
		AuthID:    identity.Subject,
		Email:     identity.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, shadow); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Created by a concurrent request for the same subject.
			return s.users.GetByAuthID(ctx, identity.Subject)
		}
		return nil, fmt.Errorf("failed to create shadow user: %w", err)
	}

	log.Info().Str("auth_id", identity.Subject).Msg("Shadow user created")
	return shadow, nil
}

// RequireRegistered rejects shadow users
func (s *UserService) RequireRegistered(user *models.User) error {
	if user == nil || !user.IsRegistered() {
		return models.ErrNotRegistered
	}
	return nil
}

// Register completes the profile of authID. The username must be free and
// the user must not already be registered.
func (s *UserService) Register(ctx context.Context, authID, username, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, models.NewValidationError(fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, models.ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	existing, err := s.users.GetByAuthID(ctx, authID)
	switch {
	case err == nil && existing.IsRegistered():
		return nil, models.ErrAlreadyRegistered
	case err == nil:
		if email == "" {
			email = existing.Email
		}
		if err := s.users.SetProfile(ctx, authID, username, email); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, models.ErrUsernameTaken
			}
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		user := &models.User{
			AuthID:    authID,
			Username:  &username,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, models.ErrUsernameTaken
			}
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	log.Info().Str("auth_id", authID).Str("username", username).Msg("User registered")
	return s.users.GetByAuthID(ctx, authID)
}

// GetUser retrieves a user by id
func (s *UserService) GetUser(ctx context.Context, authID string) (*models.User, error) {
	user, err := s.users.GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Health pings the user store
func (s *UserService) Health(ctx context.Context) error {
	return s.users.Ping(ctx)
}
