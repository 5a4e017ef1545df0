package repository

import (
	"context"
	"errors"
	"fmt"

	"athlos-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommentRepository handles database operations for comments. The
// comments_count on posts is adjusted only here, in the same transaction
// as the comment row.
type CommentRepository struct {
	db *pgxpool.Pool
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment and bumps the post's comments_count in one
// transaction
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO comments (id, user_id, post_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.UserID, comment.PostID, comment.Content, comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, comment.PostID)
	if err != nil {
		return fmt.Errorf("failed to increment comments count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, post_id, content, created_at
		FROM comments
		WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.PostID, &c.Content, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

// ListByPost retrieves comments for a post with their authors, oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID string, limit int) ([]*models.Comment, error) {
	sql := `
		SELECT c.id, c.user_id, c.post_id, c.content, c.created_at,
		       pr.id, pr.username, pr.profile_image_url, pr.is_verified
		FROM comments c
		JOIN profiles pr ON pr.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC
		LIMIT $2
	`
	var comments []*models.Comment
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, postID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		comments = comments[:0]
		for rows.Next() {
			var c models.Comment
			var a models.Profile
			err := rows.Scan(
				&c.ID, &c.UserID, &c.PostID, &c.Content, &c.CreatedAt,
				&a.ID, &a.Username, &a.ProfileImageURL, &a.IsVerified,
			)
			if err != nil {
				return err
			}
			c.Author = &a
			comments = append(comments, &c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
