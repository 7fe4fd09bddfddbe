package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/auth"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/store"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserSyncFailed = errors.New("failed to sync user from external identity")
)

// UserService materializes users from external identities. Every sign-in
// refreshes the stored projection (name, avatar, profile URL).
type UserService struct {
	store *store.Store
}

func NewUserService(s *store.Store) *UserService {
	return &UserService{store: s}
}

// SyncGitHubUser creates or updates a user from a GitHub OAuth profile
func (s *UserService) SyncGitHubUser(
	ctx context.Context,
	info *auth.GitHubUserInfo,
	organization string,
) (*models.User, error) {
	user, err := s.store.UpsertExternalUser(&models.User{
		Login:        info.Login,
		Name:         info.Name,
		AvatarURL:    info.AvatarURL,
		HTMLURL:      info.HTMLURL,
		ExternalID:   info.UserID,
		AuthSource:   models.AuthSourceGitHub,
		Organization: organization,
	})
	if err != nil {
		if errors.Is(err, store.ErrLoginConflict) {
			return nil, fmt.Errorf("%w: login %q belongs to another identity", ErrUserSyncFailed, info.Login)
		}
		return nil, fmt.Errorf("%w: %v", ErrUserSyncFailed, err)
	}
	return user, nil
}

// SyncTokenUser creates or updates a user from validated organization token
// claims. The token subject is the external ID.
func (s *UserService) SyncTokenUser(
	ctx context.Context,
	claims *token.OrgClaims,
) (*models.User, error) {
	user, err := s.store.UpsertExternalUser(&models.User{
		Login:        claims.Username,
		Name:         claims.Name,
		AvatarURL:    claims.AvatarURL,
		HTMLURL:      claims.ProfileURL,
		ExternalID:   claims.Subject,
		AuthSource:   models.AuthSourceOrgToken,
		Organization: claims.Organization,
	})
	if err != nil {
		if errors.Is(err, store.ErrLoginConflict) {
			return nil, fmt.Errorf("%w: login %q belongs to another identity", ErrUserSyncFailed, claims.Username)
		}
		return nil, fmt.Errorf("%w: %v", ErrUserSyncFailed, err)
	}
	return user, nil
}

// SyncSessionIdentity creates or updates a user from a bound session
// identity. Used when a staged token is finalized mid-request and the
// original claims are no longer in hand.
func (s *UserService) SyncSessionIdentity(
	ctx context.Context,
	identity session.Identity,
	organization, source string,
) (*models.User, error) {
	authSource := models.AuthSourceOrgToken
	if source == session.SourceGitHub {
		authSource = models.AuthSourceGitHub
	}

	user, err := s.store.UpsertExternalUser(&models.User{
		Login:        identity.Login,
		Name:         identity.Name,
		AvatarURL:    identity.AvatarURL,
		HTMLURL:      identity.HTMLURL,
		ExternalID:   identity.UserID,
		AuthSource:   authSource,
		Organization: organization,
	})
	if err != nil {
		if errors.Is(err, store.ErrLoginConflict) {
			return nil, fmt.Errorf("%w: login %q belongs to another identity", ErrUserSyncFailed, identity.Login)
		}
		return nil, fmt.Errorf("%w: %v", ErrUserSyncFailed, err)
	}
	return user, nil
}

// GetUserByID retrieves a user by internal ID
func (s *UserService) GetUserByID(id string) (*models.User, error) {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUserByLogin retrieves a user by login
func (s *UserService) GetUserByLogin(login string) (*models.User, error) {
	user, err := s.store.GetUserByLogin(login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
