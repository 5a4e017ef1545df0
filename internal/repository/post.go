package repository

import (
	"context"
	"errors"
	"fmt"

	"athlos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostRepository handles database operations for posts
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a post together with its tag links and bumps the owner's
// posts_count, all in one transaction. Tags are created by name on first
// use; the unique constraint plus upsert makes concurrent first-use safe.
func (r *PostRepository) Create(ctx context.Context, post *models.Post, tagNames []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO posts (id, user_id, caption, media_urls, media_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, post.ID, post.UserID, post.Caption, post.MediaURLs, post.MediaType, post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE profiles SET posts_count = posts_count + 1 WHERE id = $1`, post.UserID)
	if err != nil {
		return fmt.Errorf("failed to increment posts count: %w", err)
	}

	for _, name := range tagNames {
		var tagID string
		err = tx.QueryRow(ctx, `
			INSERT INTO tags (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New().String(), name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, post.ID, tagID)
		if err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit post: %w", err)
	}
	return nil
}

const postColumns = `p.id, p.user_id, p.caption, p.media_urls, p.media_type,
	p.likes_count, p.comments_count, p.created_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.Caption, &p.MediaURLs, &p.MediaType,
		&p.LikesCount, &p.CommentsCount, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post *models.Post
	err := withRetry(ctx, func() error {
		var err error
		post, err = scanPost(r.db.QueryRow(ctx,
			`SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// Delete removes a post owned by userID and everything hanging off it.
// Likes, comments and tag links go via ON DELETE CASCADE; the owner's
// posts_count is decremented in the same transaction, and only when the
// post row was actually deleted.
func (r *PostRepository) Delete(ctx context.Context, postID, userID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles SET posts_count = GREATEST(posts_count - 1, 0) WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to decrement posts count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit post deletion: %w", err)
	}
	return nil
}

// ListRecent retrieves the most recent posts with their authors,
// newest first
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	sql := `
		SELECT ` + postColumns + `, ` + profileColumns2("pr") + `
		FROM posts p
		JOIN profiles pr ON pr.id = p.user_id
		ORDER BY p.created_at DESC
		LIMIT $1
	`
	var posts []*models.Post
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		posts, err = collectPostsWithAuthor(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}
	return posts, nil
}

// ListByUser retrieves posts by a profile with pagination, newest first
func (r *PostRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, int, error) {
	var total int
	err := withRetry(ctx, func() error {
		return r.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID).Scan(&total)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	sql := `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`
	var posts []*models.Post
	err = withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, userID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		posts = posts[:0]
		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			posts = append(posts, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, total, nil
}

// ListByTag retrieves posts linked to a tag name, newest first
func (r *PostRepository) ListByTag(ctx context.Context, tagName string, limit int) ([]*models.Post, error) {
	sql := `
		SELECT ` + postColumns + `, ` + profileColumns2("pr") + `
		FROM posts p
		JOIN profiles pr ON pr.id = p.user_id
		JOIN post_tags pt ON pt.post_id = p.id
		JOIN tags t ON t.id = pt.tag_id
		WHERE t.name = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`
	var posts []*models.Post
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, tagName, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		posts, err = collectPostsWithAuthor(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by tag: %w", err)
	}
	return posts, nil
}

// CountByUser returns the number of posts owned by a profile
func (r *PostRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// profileColumns2 returns the profile column list qualified by alias
func profileColumns2(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.username, %[1]s.full_name, %[1]s.bio,
		%[1]s.location, %[1]s.sport, %[1]s.profile_image_url, %[1]s.cover_image_url,
		%[1]s.is_verified, %[1]s.followers_count, %[1]s.following_count,
		%[1]s.posts_count, %[1]s.created_at`, alias)
}

func collectPostsWithAuthor(rows pgx.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		var a models.Profile
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Caption, &p.MediaURLs, &p.MediaType,
			&p.LikesCount, &p.CommentsCount, &p.CreatedAt,
			&a.ID, &a.Username, &a.FullName, &a.Bio, &a.Location, &a.Sport,
			&a.ProfileImageURL, &a.CoverImageURL, &a.IsVerified,
			&a.FollowersCount, &a.FollowingCount, &a.PostsCount, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Author = &a
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}
