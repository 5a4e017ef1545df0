package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const jwtExpDays = 30

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// AuthStore is the profile storage surface the auth service needs
type AuthStore interface {
	Create(ctx context.Context, p *models.Profile, email, passwordHash string) error
	GetCredentials(ctx context.Context, email string) (id, passwordHash string, err error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// AuthService handles registration, login and token validation
type AuthService struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthService creates a new auth service
func NewAuthService(store AuthStore, jwtSecret string) *AuthService {
	return &AuthService{store: store, jwtSecret: jwtSecret}
}

// Register creates a new profile with credentials and returns it with a
// session token
func (s *AuthService) Register(ctx context.Context, username, email, password, fullName string) (*models.Profile, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)

	if !usernameRe.MatchString(username) {
		return nil, "", validationf("username must be 3-30 characters: lowercase letters, digits, underscore")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", validationf("a valid email is required")
	}
	if len(password) < 8 {
		return nil, "", validationf("password must be at least 8 characters")
	}
	if fullName == "" {
		return nil, "", validationf("full_name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		ID:        uuid.New().String(),
		Username:  username,
		FullName:  fullName,
		CreatedAt: time.Now(),
	}

	if err := s.store.Create(ctx, profile, email, string(hash)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", fmt.Errorf("failed to create profile: %w", err)
	}

	token, err := s.GenerateJWT(profile.ID)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// Login verifies credentials and returns the profile with a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	id, hash, err := s.store.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up credentials: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	profile, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load profile: %w", err)
	}

	token, err := s.GenerateJWT(id)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// GenerateJWT generates a session token for a profile
func (s *AuthService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a session token and returns the profile ID
func (s *AuthService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}
