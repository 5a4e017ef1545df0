package handlers

import (
	"encoding/json"
	"net/http"

	"athlos-backend/internal/middleware"
	"athlos-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Me handles GET /api/v1/profiles/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	profile, err := h.profileService.Get(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get own profile")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// Get handles GET /api/v1/profiles/{profile_id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	profileID := chi.URLParam(r, "profile_id")

	profile, err := h.profileService.Get(ctx, profileID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	isFollowing := false
	if viewerID != "" && viewerID != profileID {
		isFollowing, err = h.profileService.IsFollowing(ctx, viewerID, profileID)
		if err != nil {
			log.Error().Err(err).Str("profile_id", profileID).Msg("Failed to check follow state")
			respondServiceError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile":      profile,
		"is_following": isFollowing,
	})
}

// GetByUsername handles GET /api/v1/profiles/by-username/{username}
func (h *ProfileHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Update handles PATCH /api/v1/profiles/me
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var update services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.Update(ctx, userID, update)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update profile")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")
	respondJSON(w, http.StatusOK, profile)
}

// UploadImage handles POST /api/v1/profiles/me/image?kind=profile|cover
func (h *ProfileHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	kind := r.URL.Query().Get("kind")
	if kind != "profile" && kind != "cover" {
		respondError(w, "kind must be profile or cover", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	profile, err := h.profileService.SetImage(ctx, userID, services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, kind == "cover")
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("kind", kind).Msg("Failed to upload image")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// Followers handles GET /api/v1/profiles/{profile_id}/followers
func (h *ProfileHandler) Followers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileService.Followers(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}

// Following handles GET /api/v1/profiles/{profile_id}/following
func (h *ProfileHandler) Following(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileService.Following(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}

// Achievements handles GET /api/v1/profiles/{profile_id}/achievements
func (h *ProfileHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.profileService.Achievements(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"achievements": achievements})
}

// Search handles GET /api/v1/search?q=
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}
