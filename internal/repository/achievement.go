package repository

import (
	"context"
	"fmt"

	"athlos-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AchievementRepository handles database operations for achievements
type AchievementRepository struct {
	db *pgxpool.Pool
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Award inserts an achievement if the profile does not already hold one of
// that type. Returns whether it was newly awarded.
func (r *AchievementRepository) Award(ctx context.Context, a *models.Achievement) (bool, error) {
	result, err := r.db.Exec(ctx, `
		INSERT INTO achievements (id, user_id, type, title, description, earned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, type) DO NOTHING
	`, a.ID, a.UserID, a.Type, a.Title, a.Description, a.EarnedAt)
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListByUser retrieves a profile's achievements, newest first
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]*models.Achievement, error) {
	sql := `
		SELECT id, user_id, type, title, description, earned_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY earned_at DESC
	`
	var achievements []*models.Achievement
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		achievements = achievements[:0]
		for rows.Next() {
			var a models.Achievement
			err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Title, &a.Description, &a.EarnedAt)
			if err != nil {
				return err
			}
			achievements = append(achievements, &a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}
