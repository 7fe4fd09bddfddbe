package services

import (
	"context"
	"testing"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/auth"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/store"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func TestUserService_SyncGitHubUser(t *testing.T) {
	svc := NewUserService(newTestStore(t))

	user, err := svc.SyncGitHubUser(context.Background(), &auth.GitHubUserInfo{
		UserID:    "42",
		Login:     "octocat",
		Name:      "The Octocat",
		AvatarURL: "https://avatars.example.com/42",
		HTMLURL:   "https://github.com/octocat",
	}, "mattpm")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.AuthSourceGitHub, user.AuthSource)
	assert.Equal(t, "mattpm", user.Organization)
	assert.False(t, user.IsTokenIssued())

	// Second sign-in refreshes the projection without creating another row
	again, err := svc.SyncGitHubUser(context.Background(), &auth.GitHubUserInfo{
		UserID: "42",
		Login:  "octocat",
		Name:   "Octo, renamed",
	}, "mattpm")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Octo, renamed", again.Name)
}

func TestUserService_SyncTokenUser(t *testing.T) {
	svc := NewUserService(newTestStore(t))

	user, err := svc.SyncTokenUser(context.Background(), &token.OrgClaims{
		Subject:      "member-7",
		Username:     "hubot",
		Organization: "mattpm",
		Name:         "Hubot",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuthSourceOrgToken, user.AuthSource)
	assert.True(t, user.IsTokenIssued())

	got, err := svc.GetUserByLogin("hubot")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserService_SyncTokenUser_LoginConflict(t *testing.T) {
	svc := NewUserService(newTestStore(t))

	_, err := svc.SyncGitHubUser(context.Background(), &auth.GitHubUserInfo{
		UserID: "42",
		Login:  "octocat",
	}, "mattpm")
	require.NoError(t, err)

	// Same login arriving through the token path is a different identity
	_, err = svc.SyncTokenUser(context.Background(), &token.OrgClaims{
		Subject:      "member-9",
		Username:     "octocat",
		Organization: "mattpm",
	})
	assert.ErrorIs(t, err, ErrUserSyncFailed)
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	svc := NewUserService(newTestStore(t))

	_, err := svc.GetUserByID("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.GetUserByLogin("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
