package handlers

import (
	"encoding/json"
	"net/http"

	"athlos-backend/internal/models"
	"athlos-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest is the body for POST /api/v1/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest is the body for POST /api/v1/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the profile and its session token
type AuthResponse struct {
	Profile *models.Profile `json:"profile"`
	Token   string          `json:"token"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, token, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to register")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", profile.ID).
		Str("username", profile.Username).
		Msg("Profile registered")

	respondJSON(w, http.StatusCreated, AuthResponse{Profile: profile, Token: token})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn().Err(err).Msg("Failed login attempt")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{Profile: profile, Token: token})
}
