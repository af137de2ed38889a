package services

import (
	"context"
	"strings"
	"testing"

	"chatvault/config"
	"chatvault/internal/domain/user"
	vault_errors "chatvault/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	byID       map[uuid.UUID]user.User
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:       make(map[uuid.UUID]user.User),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := r.byEmail[u.Email]; ok {
		return vault_errors.ErrAlreadyExists
	}
	if _, ok := r.byUsername[u.Username]; ok {
		return vault_errors.ErrAlreadyExists
	}
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return user.User{}, vault_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, vault_errors.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	id, ok := r.byUsername[username]
	if !ok {
		return user.User{}, vault_errors.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *fakeUserRepo) UpdateProfileImage(_ context.Context, userID uuid.UUID, imageURL string) error {
	u, ok := r.byID[userID]
	if !ok {
		return vault_errors.ErrNotFound
	}
	u.ProfileImageURL.String = imageURL
	u.ProfileImageURL.Valid = true
	r.byID[userID] = u
	return nil
}

func newTestAuthService() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, &config.Config{
		JWTSecret:    "test-secret",
		JWTExpiryMin: 15,
	})
	return svc, repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "alice", resp.User.DisplayName)

	t.Run("login by email", func(t *testing.T) {
		got, err := svc.Login(ctx, LoginInput{Identity: "alice@example.com", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, got.User.ID)
	})

	t.Run("login by username", func(t *testing.T) {
		got, err := svc.Login(ctx, LoginInput{Identity: "alice", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, got.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Identity: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, vault_errors.ErrUnauthorized)
	})

	t.Run("unknown identity does not leak existence", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Identity: "nobody", Password: "whatever"})
		assert.ErrorIs(t, err, vault_errors.ErrUnauthorized)
	})
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Username: "x", Password: "short"})
	assert.ErrorIs(t, err, vault_errors.ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{Email: "", Username: "x", Password: "long enough"})
	assert.ErrorIs(t, err, vault_errors.ErrInvalidInput)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@x.io", Username: "dup", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "dup@x.io", Username: "dup2", Password: "password123"})
	assert.ErrorIs(t, err, vault_errors.ErrAlreadyExists)
}

func TestParseAccessToken(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{Email: "t@x.io", Username: "tok", Password: "password123"})
	require.NoError(t, err)

	claims, err := svc.ParseAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.ParseAccessToken("")
		assert.ErrorIs(t, err, vault_errors.ErrUnauthorized)
	})

	t.Run("tampered token", func(t *testing.T) {
		tampered := resp.AccessToken[:len(resp.AccessToken)-2] + "xx"
		_, err := svc.ParseAccessToken(tampered)
		assert.ErrorIs(t, err, vault_errors.ErrUnauthorized)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := NewAuthService(newFakeUserRepo(), &config.Config{JWTSecret: "other", JWTExpiryMin: 15})
		foreign, err := other.Register(ctx, RegisterInput{Email: "f@x.io", Username: "foreign", Password: "password123"})
		require.NoError(t, err)

		_, err = svc.ParseAccessToken(foreign.AccessToken)
		assert.ErrorIs(t, err, vault_errors.ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ParseAccessToken(strings.Repeat("a", 40))
		assert.ErrorIs(t, err, vault_errors.ErrUnauthorized)
	})
}
