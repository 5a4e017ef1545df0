package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LikeRepository handles database operations for likes. The denormalized
// likes_count on posts is adjusted only here, inside the same transaction
// as the like row itself, so the counter can never drift from the rows.
type LikeRepository struct {
	db *pgxpool.Pool
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{db: db}
}

// Add inserts a like for (userID, postID). A duplicate like is a no-op:
// the unique constraint arbitrates concurrent inserts and the counter is
// bumped only when a row was actually inserted. Returns whether the like
// was newly created.
func (r *LikeRepository) Add(ctx context.Context, userID, postID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO likes (id, user_id, post_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, post_id) DO NOTHING
	`, uuid.New().String(), userID, postID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to create like: %w", err)
	}

	inserted := result.RowsAffected() > 0
	if inserted {
		result, err = tx.Exec(ctx,
			`UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1`, postID)
		if err != nil {
			return false, fmt.Errorf("failed to increment likes count: %w", err)
		}
		if result.RowsAffected() == 0 {
			return false, ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit like: %w", err)
	}
	return inserted, nil
}

// Remove deletes the like for (userID, postID) if present. The counter is
// decremented only when a row was actually deleted, so a redundant unlike
// is a no-op. Returns whether a like was removed.
func (r *LikeRepository) Remove(ctx context.Context, userID, postID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}

	removed := result.RowsAffected() > 0
	if removed {
		_, err = tx.Exec(ctx,
			`UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`, postID)
		if err != nil {
			return false, fmt.Errorf("failed to decrement likes count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit unlike: %w", err)
	}
	return removed, nil
}

// Exists reports whether userID has liked postID
func (r *LikeRepository) Exists(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2)`,
		userID, postID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check like existence: %w", err)
	}
	return exists, nil
}

// LikedSet returns which of postIDs are liked by userID
func (r *LikeRepository) LikedSet(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2)`,
		userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get liked posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		if err := rows.Scan(&postID); err != nil {
			return nil, fmt.Errorf("failed to scan liked post: %w", err)
		}
		liked[postID] = true
	}
	return liked, rows.Err()
}
