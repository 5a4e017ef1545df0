package repository

import (
	"context"
	"fmt"
	"time"

	"athlos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FollowRepository handles database operations for follower edges.
// followers_count and following_count are adjusted only here, in the same
// transaction as the edge row.
type FollowRepository struct {
	db *pgxpool.Pool
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *pgxpool.Pool) *FollowRepository {
	return &FollowRepository{db: db}
}

// Add inserts a follow edge from followerID to followingID. A duplicate
// follow is a no-op. Returns whether the edge was newly created.
func (r *FollowRepository) Add(ctx context.Context, followerID, followingID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO follows (id, follower_id, following_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`, uuid.New().String(), followerID, followingID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	inserted := result.RowsAffected() > 0
	if inserted {
		result, err = tx.Exec(ctx,
			`UPDATE profiles SET followers_count = followers_count + 1 WHERE id = $1`, followingID)
		if err != nil {
			return false, fmt.Errorf("failed to increment followers count: %w", err)
		}
		if result.RowsAffected() == 0 {
			return false, ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE profiles SET following_count = following_count + 1 WHERE id = $1`, followerID)
		if err != nil {
			return false, fmt.Errorf("failed to increment following count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit follow: %w", err)
	}
	return inserted, nil
}

// Remove deletes the follow edge if present. Returns whether an edge was
// removed.
func (r *FollowRepository) Remove(ctx context.Context, followerID, followingID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}

	removed := result.RowsAffected() > 0
	if removed {
		_, err = tx.Exec(ctx,
			`UPDATE profiles SET followers_count = GREATEST(followers_count - 1, 0) WHERE id = $1`,
			followingID)
		if err != nil {
			return false, fmt.Errorf("failed to decrement followers count: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE profiles SET following_count = GREATEST(following_count - 1, 0) WHERE id = $1`,
			followerID)
		if err != nil {
			return false, fmt.Errorf("failed to decrement following count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit unfollow: %w", err)
	}
	return removed, nil
}

// Exists reports whether followerID follows followingID
func (r *FollowRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`,
		followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// Followers retrieves the profiles following userID
func (r *FollowRepository) Followers(ctx context.Context, userID string, limit int) ([]*models.Profile, error) {
	sql := `
		SELECT ` + profileColumns2("pr") + `
		FROM follows f
		JOIN profiles pr ON pr.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2
	`
	return r.queryProfiles(ctx, sql, userID, limit)
}

// Following retrieves the profiles userID follows
func (r *FollowRepository) Following(ctx context.Context, userID string, limit int) ([]*models.Profile, error) {
	sql := `
		SELECT ` + profileColumns2("pr") + `
		FROM follows f
		JOIN profiles pr ON pr.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2
	`
	return r.queryProfiles(ctx, sql, userID, limit)
}

func (r *FollowRepository) queryProfiles(ctx context.Context, sql, userID string, limit int) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		profiles, err = collectProfiles(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list follow profiles: %w", err)
	}
	return profiles, nil
}
