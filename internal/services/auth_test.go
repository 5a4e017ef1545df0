package services

import (
	"context"
	"testing"

	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authCreds struct {
	id   string
	hash string
}

type fakeAuthStore struct {
	profiles map[string]*models.Profile
	creds    map[string]authCreds
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		profiles: make(map[string]*models.Profile),
		creds:    make(map[string]authCreds),
	}
}

func (s *fakeAuthStore) Create(_ context.Context, p *models.Profile, email, passwordHash string) error {
	for _, existing := range s.profiles {
		if existing.Username == p.Username {
			return repository.ErrDuplicate
		}
	}
	if _, ok := s.creds[email]; ok {
		return repository.ErrDuplicate
	}
	s.profiles[p.ID] = p
	s.creds[email] = authCreds{id: p.ID, hash: passwordHash}
	return nil
}

func (s *fakeAuthStore) GetCredentials(_ context.Context, email string) (string, string, error) {
	c, ok := s.creds[email]
	if !ok {
		return "", "", repository.ErrNotFound
	}
	return c.id, c.hash, nil
}

func (s *fakeAuthStore) GetByID(_ context.Context, id string) (*models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates profile and returns valid token", func(t *testing.T) {
		svc := NewAuthService(newFakeAuthStore(), "test-secret")

		profile, token, err := svc.Register(ctx, "Runner_01", "Runner@Example.com", "supersecret", "Road Runner")
		require.NoError(t, err)
		assert.Equal(t, "runner_01", profile.Username)
		assert.Equal(t, "Road Runner", profile.FullName)

		userID, err := svc.ValidateJWT(token)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, userID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := NewAuthService(newFakeAuthStore(), "test-secret")

		_, _, err := svc.Register(ctx, "runner", "a@example.com", "supersecret", "A")
		require.NoError(t, err)

		_, _, err = svc.Register(ctx, "runner", "b@example.com", "supersecret", "B")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc := NewAuthService(newFakeAuthStore(), "test-secret")

		_, _, err := svc.Register(ctx, "ab", "a@example.com", "supersecret", "A")
		assert.True(t, IsValidation(err), "username too short")

		_, _, err = svc.Register(ctx, "has space", "a@example.com", "supersecret", "A")
		assert.True(t, IsValidation(err), "username with space")

		_, _, err = svc.Register(ctx, "runner", "not-an-email", "supersecret", "A")
		assert.True(t, IsValidation(err), "bad email")

		_, _, err = svc.Register(ctx, "runner", "a@example.com", "short", "A")
		assert.True(t, IsValidation(err), "short password")

		_, _, err = svc.Register(ctx, "runner", "a@example.com", "supersecret", "  ")
		assert.True(t, IsValidation(err), "blank full name")
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeAuthStore(), "test-secret")

	registered, _, err := svc.Register(ctx, "runner", "a@example.com", "supersecret", "A")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		profile, token, err := svc.Login(ctx, "A@Example.com", "supersecret")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, profile.ID)

		userID, err := svc.ValidateJWT(token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "a@example.com", "wrongpassword")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "supersecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestValidateJWT(t *testing.T) {
	svc := NewAuthService(newFakeAuthStore(), "test-secret")

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.GenerateJWT("user-42")
		require.NoError(t, err)

		userID, err := svc.ValidateJWT(token)
		require.NoError(t, err)
		assert.Equal(t, "user-42", userID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(newFakeAuthStore(), "a-different-secret")
		token, err := other.GenerateJWT("user-42")
		require.NoError(t, err)

		_, err = svc.ValidateJWT(token)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateJWT("not.a.token")
		assert.Error(t, err)
	})
}
