package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"athlos-backend/internal/middleware"
	"athlos-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxPostFormMemory = 32 << 20

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// Create handles POST /api/v1/posts (multipart form: media files, caption,
// tags as a comma-separated field)
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := r.ParseMultipartForm(maxPostFormMemory); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	var uploads []services.Upload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["media"] {
			file, err := header.Open()
			if err != nil {
				respondError(w, "failed to read media file", http.StatusBadRequest)
				return
			}
			defer file.Close()
			uploads = append(uploads, services.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			})
		}
	}

	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	post, err := h.postService.Create(ctx, userID, r.FormValue("caption"), uploads, tags)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Int("files", len(uploads)).Msg("Failed to create post")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("post_id", post.ID).
		Int("files", len(uploads)).
		Msg("Post created")

	respondJSON(w, http.StatusCreated, post)
}

// Get handles GET /api/v1/posts/{post_id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	post, err := h.postService.Get(ctx, viewerID, chi.URLParam(r, "post_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /api/v1/posts/{post_id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "post_id")

	if err := h.postService.Delete(ctx, postID, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("post_id", postID).Msg("Failed to delete post")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("post_id", postID).Msg("Post deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Feed handles GET /api/v1/feed
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	posts, err := h.postService.Feed(ctx, viewerID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", viewerID).Msg("Failed to load feed")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// ListByUser handles GET /api/v1/profiles/{profile_id}/posts
func (h *PostHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	profileID := chi.URLParam(r, "profile_id")

	limit, offset := 0, 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			limit = parsed
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			offset = parsed
		}
	}

	posts, total, err := h.postService.ListByUser(ctx, viewerID, profileID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"total": total,
	})
}

// ListByTag handles GET /api/v1/tags/{tag_name}/posts
func (h *PostHandler) ListByTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	posts, err := h.postService.ListByTag(ctx, viewerID, chi.URLParam(r, "tag_name"), 0)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Comments handles GET /api/v1/posts/{post_id}/comments
func (h *PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.postService.Comments(r.Context(), chi.URLParam(r, "post_id"), 0)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// CommentRequest is the body for POST /api/v1/posts/{post_id}/comments
type CommentRequest struct {
	Content string `json:"content"`
}

// AddComment handles POST /api/v1/posts/{post_id}/comments
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "post_id")

	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	comment, err := h.postService.AddComment(ctx, userID, postID, req.Content)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("post_id", postID).Msg("Failed to add comment")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, comment)
}
