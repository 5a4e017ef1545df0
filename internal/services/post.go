package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"athlos-backend/internal/events"
	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxFilesPerPost   = 5
	maxTagsPerPost    = 10
	maxTagLength      = 30
	maxCaptionLength  = 2000
	maxCommentLength  = 1000
	defaultFeedLimit  = 20
	defaultListLimit  = 50
	maxListLimit      = 100
	maxUploadFileSize = 10 << 20
)

// PostStore is the post storage surface the post service needs
type PostStore interface {
	Create(ctx context.Context, post *models.Post, tagNames []string) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Delete(ctx context.Context, postID, userID string) error
	ListRecent(ctx context.Context, limit int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, int, error)
	ListByTag(ctx context.Context, tagName string, limit int) ([]*models.Post, error)
}

// CommentStore is the comment storage surface the post service needs
type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID string, limit int) ([]*models.Comment, error)
}

// LikedSetStore annotates posts with the viewer's like state
type LikedSetStore interface {
	LikedSet(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

// PostTagStore reads tag links for posts
type PostTagStore interface {
	ListByPost(ctx context.Context, postID string) ([]models.Tag, error)
	ListForPosts(ctx context.Context, postIDs []string) (map[string][]models.Tag, error)
}

// Upload is a single media file to store
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PostService handles post creation, deletion and feed assembly
type PostService struct {
	posts     PostStore
	comments  CommentStore
	likes     LikedSetStore
	tags      PostTagStore
	storage   Storage
	publisher *events.Publisher
}

// NewPostService creates a new post service
func NewPostService(posts PostStore, comments CommentStore, likes LikedSetStore, tags PostTagStore, storage Storage, publisher *events.Publisher) *PostService {
	return &PostService{
		posts:     posts,
		comments:  comments,
		likes:     likes,
		tags:      tags,
		storage:   storage,
		publisher: publisher,
	}
}

// NormalizeTags trims, case-folds and deduplicates tag names, preserving
// first-seen order. Returns a validation error for empty-after-trim input,
// overlong names, or too many tags.
func NormalizeTags(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.TrimPrefix(name, "#")
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > maxTagLength {
			return nil, validationf(fmt.Sprintf("tag %q exceeds %d characters", name, maxTagLength))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		normalized = append(normalized, name)
	}
	if len(normalized) > maxTagsPerPost {
		return nil, validationf(fmt.Sprintf("at most %d tags per post", maxTagsPerPost))
	}
	return normalized, nil
}

// Create validates the request, uploads every file, then inserts the post
// with its tag links in one transaction. If any upload fails, files stored
// before the failure are deleted again and no post row is created.
func (s *PostService) Create(ctx context.Context, userID, caption string, uploads []Upload, tagNames []string) (*models.Post, error) {
	if len(uploads) == 0 {
		return nil, validationf("at least one media file is required")
	}
	if len(uploads) > maxFilesPerPost {
		return nil, validationf(fmt.Sprintf("at most %d media files per post", maxFilesPerPost))
	}
	caption = strings.TrimSpace(caption)
	if len(caption) > maxCaptionLength {
		return nil, validationf(fmt.Sprintf("caption exceeds %d characters", maxCaptionLength))
	}
	for _, u := range uploads {
		if u.Size > maxUploadFileSize {
			return nil, validationf("media file too large")
		}
	}

	tags, err := NormalizeTags(tagNames)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(uploads))
	urls := make([]string, 0, len(uploads))
	for _, u := range uploads {
		key := MediaKey(userID, u.Filename)
		if err := s.storage.Upload(ctx, key, u.ContentType, u.Body); err != nil {
			s.cleanupKeys(keys)
			return nil, fmt.Errorf("failed to upload media: %w", err)
		}
		keys = append(keys, key)
		urls = append(urls, s.storage.PublicURL(key))
	}

	post := &models.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		MediaURLs: urls,
		MediaType: "image",
		CreatedAt: time.Now(),
	}
	if caption != "" {
		post.Caption = &caption
	}

	if err := s.posts.Create(ctx, post, tags); err != nil {
		s.cleanupKeys(keys)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.publisher.PostCreated(events.PostCreatedEvent{
		PostID:    post.ID,
		AuthorID:  userID,
		CreatedAt: post.CreatedAt,
	})
	return post, nil
}

// cleanupKeys compensates a partial multi-step failure by deleting objects
// stored before the step that failed
func (s *PostService) cleanupKeys(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to clean up uploaded object")
		}
	}
}

// Get retrieves a post with like state and tags for a viewer
func (s *PostService) Get(ctx context.Context, viewerID, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	liked, err := s.likes.LikedSet(ctx, viewerID, []string{post.ID})
	if err != nil {
		return nil, err
	}
	post.IsLiked = liked[post.ID]

	post.Tags, err = s.tags.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post owned by userID, its dependent rows and its media
// objects. The ownership check is part of the delete statement itself; the
// acting id comes from the session, never the request.
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if post.UserID != userID {
		return ErrForbidden
	}

	if err := s.posts.Delete(ctx, postID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	// Media cleanup happens after the row delete commits: a leaked object
	// is recoverable, a dangling post row is not.
	for _, url := range post.MediaURLs {
		key, ok := s.storage.KeyFromURL(url)
		if !ok {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to delete media object")
		}
	}

	s.publisher.PostDeleted(events.PostDeletedEvent{PostID: postID, AuthorID: userID})
	return nil
}

// Feed retrieves the most recent posts annotated with the viewer's like
// state and each post's tags
func (s *PostService) Feed(ctx context.Context, viewerID string, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	posts, err := s.posts.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, viewerID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByUser retrieves a profile's posts with pagination
func (s *PostService) ListByUser(ctx context.Context, viewerID, userID string, limit, offset int) ([]*models.Post, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	posts, total, err := s.posts.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.annotate(ctx, viewerID, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByTag retrieves posts linked to a tag
func (s *PostService) ListByTag(ctx context.Context, viewerID, tagName string, limit int) ([]*models.Post, error) {
	normalized, err := NormalizeTags([]string{tagName})
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, validationf("tag name is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	posts, err := s.posts.ListByTag(ctx, normalized[0], limit)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, viewerID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) annotate(ctx context.Context, viewerID string, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	liked, err := s.likes.LikedSet(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	tagsByPost, err := s.tags.ListForPosts(ctx, ids)
	if err != nil {
		return err
	}

	for _, p := range posts {
		p.IsLiked = liked[p.ID]
		p.Tags = tagsByPost[p.ID]
	}
	return nil
}

// AddComment appends a comment to a post
func (s *PostService) AddComment(ctx context.Context, userID, postID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("comment content is required")
	}
	if len(content) > maxCommentLength {
		return nil, validationf(fmt.Sprintf("comment exceeds %d characters", maxCommentLength))
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		UserID:    userID,
		PostID:    postID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.publisher.PostCommented(events.PostCommentedEvent{
		PostID:      postID,
		CommentID:   comment.ID,
		PostOwnerID: post.UserID,
		CommenterID: userID,
		CreatedAt:   comment.CreatedAt,
	})
	return comment, nil
}

// Comments retrieves a post's comments, oldest first
func (s *PostService) Comments(ctx context.Context, postID string, limit int) ([]*models.Comment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.comments.ListByPost(ctx, postID, limit)
}
