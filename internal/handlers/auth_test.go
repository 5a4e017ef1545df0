package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"
	"athlos-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAuthStore struct {
	profiles map[string]*models.Profile
	creds    map[string][2]string // email -> id, hash
}

func newMemAuthStore() *memAuthStore {
	return &memAuthStore{
		profiles: make(map[string]*models.Profile),
		creds:    make(map[string][2]string),
	}
}

func (s *memAuthStore) Create(_ context.Context, p *models.Profile, email, passwordHash string) error {
	for _, existing := range s.profiles {
		if existing.Username == p.Username {
			return repository.ErrDuplicate
		}
	}
	s.profiles[p.ID] = p
	s.creds[email] = [2]string{p.ID, passwordHash}
	return nil
}

func (s *memAuthStore) GetCredentials(_ context.Context, email string) (string, string, error) {
	c, ok := s.creds[email]
	if !ok {
		return "", "", repository.ErrNotFound
	}
	return c[0], c[1], nil
}

func (s *memAuthStore) GetByID(_ context.Context, id string) (*models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegisterHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := NewAuthHandler(services.NewAuthService(newMemAuthStore(), "test-secret"))

		rec := postJSON(t, handler.Register, RegisterRequest{
			Username: "runner",
			Email:    "a@example.com",
			Password: "supersecret",
			FullName: "Road Runner",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "runner", resp.Profile.Username)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("invalid body", func(t *testing.T) {
		handler := NewAuthHandler(services.NewAuthService(newMemAuthStore(), "test-secret"))

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		handler := NewAuthHandler(services.NewAuthService(newMemAuthStore(), "test-secret"))

		rec := postJSON(t, handler.Register, RegisterRequest{
			Username: "runner",
			Email:    "a@example.com",
			Password: "short",
			FullName: "Road Runner",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate username", func(t *testing.T) {
		handler := NewAuthHandler(services.NewAuthService(newMemAuthStore(), "test-secret"))

		first := RegisterRequest{
			Username: "runner",
			Email:    "a@example.com",
			Password: "supersecret",
			FullName: "A",
		}
		require.Equal(t, http.StatusCreated, postJSON(t, handler.Register, first).Code)

		second := first
		second.Email = "b@example.com"
		assert.Equal(t, http.StatusConflict, postJSON(t, handler.Register, second).Code)
	})
}

func TestLoginHandler(t *testing.T) {
	store := newMemAuthStore()
	handler := NewAuthHandler(services.NewAuthService(store, "test-secret"))

	require.Equal(t, http.StatusCreated, postJSON(t, handler.Register, RegisterRequest{
		Username: "runner",
		Email:    "a@example.com",
		Password: "supersecret",
		FullName: "A",
	}).Code)

	t.Run("success", func(t *testing.T) {
		rec := postJSON(t, handler.Login, LoginRequest{Email: "a@example.com", Password: "supersecret"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := postJSON(t, handler.Login, LoginRequest{Email: "a@example.com", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := postJSON(t, handler.Login, LoginRequest{Email: "x@example.com", Password: "supersecret"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
