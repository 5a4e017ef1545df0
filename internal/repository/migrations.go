package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order at startup. Uniqueness constraints on
// likes, follows and tags are the only cross-user concurrency control:
// duplicate toggles and concurrent tag creation are arbitrated here.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		bio TEXT,
		location TEXT,
		sport TEXT,
		profile_image_url TEXT,
		cover_image_url TEXT,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		followers_count INT NOT NULL DEFAULT 0,
		following_count INT NOT NULL DEFAULT 0,
		posts_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		caption TEXT,
		media_urls TEXT[] NOT NULL,
		media_type TEXT NOT NULL DEFAULT 'image',
		likes_count INT NOT NULL DEFAULT 0,
		comments_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, post_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		id UUID PRIMARY KEY,
		follower_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		following_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (follower_id, following_id),
		CHECK (follower_id <> following_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		recipient_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		sender_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		post_id UUID REFERENCES posts(id) ON DELETE CASCADE,
		comment_id UUID REFERENCES comments(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS post_tags (
		post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (post_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_following ON follows (following_id)`,
}

// Migrate applies the schema migrations
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i, err)
		}
	}
	return nil
}
