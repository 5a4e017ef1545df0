package handlers

import (
	"net/http"

	"athlos-backend/internal/middleware"
	"athlos-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EngagementHandler handles like and follow toggles
type EngagementHandler struct {
	engagementService *services.EngagementService
}

// NewEngagementHandler creates a new engagement handler
func NewEngagementHandler(engagementService *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementService: engagementService}
}

// Like handles PUT /api/v1/posts/{post_id}/like
func (h *EngagementHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "post_id")

	result, err := h.engagementService.LikePost(ctx, userID, postID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("post_id", postID).Msg("Failed to like post")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Unlike handles DELETE /api/v1/posts/{post_id}/like
func (h *EngagementHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "post_id")

	result, err := h.engagementService.UnlikePost(ctx, userID, postID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("post_id", postID).Msg("Failed to unlike post")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Follow handles PUT /api/v1/profiles/{profile_id}/follow
func (h *EngagementHandler) Follow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "profile_id")

	result, err := h.engagementService.Follow(ctx, userID, targetID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("target_id", targetID).Msg("Failed to follow")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("target_id", targetID).Msg("Followed profile")
	respondJSON(w, http.StatusOK, result)
}

// Unfollow handles DELETE /api/v1/profiles/{profile_id}/follow
func (h *EngagementHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "profile_id")

	result, err := h.engagementService.Unfollow(ctx, userID, targetID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("target_id", targetID).Msg("Failed to unfollow")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
