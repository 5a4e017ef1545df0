package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"athlos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the database named by TEST_DATABASE_DSN, applies
// the schema and truncates every table. Tests are skipped when the variable
// is unset so the suite runs without a database by default.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE profiles, posts, likes, comments, follows,
		notifications, tags, post_tags, achievements CASCADE`)
	require.NoError(t, err)
	return pool
}

func createTestProfile(t *testing.T, db *pgxpool.Pool, username string) *models.Profile {
	t.Helper()

	p := &models.Profile{
		ID:        uuid.New().String(),
		Username:  username,
		FullName:  username,
		CreatedAt: time.Now(),
	}
	err := NewProfileRepository(db).Create(context.Background(), p, username+"@example.com", "hash")
	require.NoError(t, err)
	return p
}

func createTestPost(t *testing.T, db *pgxpool.Pool, userID string, tags []string) *models.Post {
	t.Helper()

	post := &models.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		MediaURLs: []string{"https://cdn.test/" + uuid.New().String() + ".jpg"},
		MediaType: "image",
		CreatedAt: time.Now(),
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post, tags))
	return post
}

func countRows(t *testing.T, db *pgxpool.Pool, table, where string, args ...interface{}) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where), args...).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestFollowCycleRestoresCounters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	follower := createTestProfile(t, db, "follower")
	followed := createTestProfile(t, db, "followed")

	follows := NewFollowRepository(db)
	profiles := NewProfileRepository(db)

	counts := func() (followers, following int) {
		a, err := profiles.GetByID(ctx, followed.ID)
		require.NoError(t, err)
		b, err := profiles.GetByID(ctx, follower.ID)
		require.NoError(t, err)
		return a.FollowersCount, b.FollowingCount
	}

	created, err := follows.Add(ctx, follower.ID, followed.ID)
	require.NoError(t, err)
	assert.True(t, created)
	followers, following := counts()
	assert.Equal(t, 1, followers)
	assert.Equal(t, 1, following)

	// A duplicate follow inserts nothing and must not move a counter.
	created, err = follows.Add(ctx, follower.ID, followed.ID)
	require.NoError(t, err)
	assert.False(t, created)
	followers, following = counts()
	assert.Equal(t, 1, followers)
	assert.Equal(t, 1, following)

	removed, err := follows.Remove(ctx, follower.ID, followed.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	followers, following = counts()
	assert.Equal(t, 0, followers)
	assert.Equal(t, 0, following)

	removed, err = follows.Remove(ctx, follower.ID, followed.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	followers, following = counts()
	assert.Equal(t, 0, followers)
	assert.Equal(t, 0, following)
}

func TestLikeCycleRestoresCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestProfile(t, db, "owner")
	viewer := createTestProfile(t, db, "viewer")
	post := createTestPost(t, db, owner.ID, nil)

	likes := NewLikeRepository(db)
	posts := NewPostRepository(db)

	likesCount := func() int {
		p, err := posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
		return p.LikesCount
	}

	created, err := likes.Add(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, likesCount())

	created, err = likes.Add(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, likesCount())

	removed, err := likes.Remove(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, likesCount())

	removed, err = likes.Remove(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, likesCount())
}

func TestPostDeleteLeavesNoOrphans(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestProfile(t, db, "owner")
	viewer := createTestProfile(t, db, "viewer")
	post := createTestPost(t, db, owner.ID, []string{"trailrun"})

	_, err := NewLikeRepository(db).Add(ctx, viewer.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{
		ID:        uuid.New().String(),
		UserID:    viewer.ID,
		PostID:    post.ID,
		Content:   "nice line",
		CreatedAt: time.Now(),
	}))

	profiles := NewProfileRepository(db)
	ownerRow, err := profiles.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, ownerRow.PostsCount)

	require.NoError(t, NewPostRepository(db).Delete(ctx, post.ID, owner.ID))

	assert.Equal(t, 0, countRows(t, db, "likes", "post_id = $1", post.ID))
	assert.Equal(t, 0, countRows(t, db, "comments", "post_id = $1", post.ID))
	assert.Equal(t, 0, countRows(t, db, "post_tags", "post_id = $1", post.ID))
	// The tag itself outlives the post.
	assert.Equal(t, 1, countRows(t, db, "tags", "name = $1", "trailrun"))

	ownerRow, err = profiles.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ownerRow.PostsCount)
}

func TestPostDeleteScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestProfile(t, db, "owner")
	other := createTestProfile(t, db, "other")
	post := createTestPost(t, db, owner.ID, nil)

	posts := NewPostRepository(db)
	err := posts.Delete(ctx, post.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = posts.GetByID(ctx, post.ID)
	assert.NoError(t, err)

	ownerRow, err := NewProfileRepository(db).GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ownerRow.PostsCount)
}

func TestTagUpsertReusesRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tags := NewTagRepository(db)
	first, err := tags.FindOrCreate(ctx, "yoga")
	require.NoError(t, err)
	second, err := tags.FindOrCreate(ctx, "yoga")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, countRows(t, db, "tags", "name = $1", "yoga"))
}
