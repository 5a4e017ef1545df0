package repository

import (
	"context"
	"fmt"

	"athlos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TagRepository handles database operations for tags
type TagRepository struct {
	db *pgxpool.Pool
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: db}
}

// FindOrCreate returns the id of the tag with the given (already
// normalized) name, creating it if absent. The upsert makes concurrent
// first-use of the same name safe.
func (r *TagRepository) FindOrCreate(ctx context.Context, name string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO tags (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, uuid.New().String(), name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to find or create tag: %w", err)
	}
	return id, nil
}

// ListByPost retrieves the tags linked to a post
func (r *TagRepository) ListByPost(ctx context.Context, postID string) ([]models.Tag, error) {
	sql := `
		SELECT t.id, t.name
		FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = $1
		ORDER BY t.name
	`
	var tags []models.Tag
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, postID)
		if err != nil {
			return err
		}
		defer rows.Close()

		tags = tags[:0]
		for rows.Next() {
			var t models.Tag
			if err := rows.Scan(&t.ID, &t.Name); err != nil {
				return err
			}
			tags = append(tags, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// ListForPosts retrieves tags for a batch of posts keyed by post id
func (r *TagRepository) ListForPosts(ctx context.Context, postIDs []string) (map[string][]models.Tag, error) {
	byPost := make(map[string][]models.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return byPost, nil
	}

	sql := `
		SELECT pt.post_id, t.id, t.name
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY t.name
	`
	rows, err := r.db.Query(ctx, sql, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var t models.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		byPost[postID] = append(byPost[postID], t)
	}
	return byPost, rows.Err()
}
