package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"athlos-backend/internal/events"
	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu      sync.Mutex
	failAt  int // 1-based upload index that fails, 0 never fails
	uploads []string
	deleted []string
}

func (f *fakeStorage) Upload(_ context.Context, key, _ string, _ io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.uploads)+1 == f.failAt {
		return errors.New("storage unavailable")
	}
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeStorage) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "https://cdn.test/") {
		return "", false
	}
	return strings.TrimPrefix(url, "https://cdn.test/"), true
}

type fakePostStore struct {
	createErr error
	created   []*models.Post
	tags      [][]string
	posts     map[string]*models.Post
	deleted   []string
}

func (f *fakePostStore) Create(_ context.Context, post *models.Post, tagNames []string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, post)
	f.tags = append(f.tags, tagNames)
	if f.posts == nil {
		f.posts = make(map[string]*models.Post)
	}
	f.posts[post.ID] = post
	return nil
}

func (f *fakePostStore) GetByID(_ context.Context, id string) (*models.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return post, nil
}

func (f *fakePostStore) Delete(_ context.Context, postID, userID string) error {
	post, ok := f.posts[postID]
	if !ok || post.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.posts, postID)
	f.deleted = append(f.deleted, postID)
	return nil
}

func (f *fakePostStore) ListRecent(_ context.Context, _ int) ([]*models.Post, error) {
	return f.created, nil
}

func (f *fakePostStore) ListByUser(_ context.Context, _ string, _, _ int) ([]*models.Post, int, error) {
	return f.created, len(f.created), nil
}

func (f *fakePostStore) ListByTag(_ context.Context, _ string, _ int) ([]*models.Post, error) {
	return f.created, nil
}

type fakeLikedSetStore struct {
	liked map[string]bool
}

func (f *fakeLikedSetStore) LikedSet(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	if f.liked == nil {
		return map[string]bool{}, nil
	}
	return f.liked, nil
}

type fakePostTagStore struct{}

func (fakePostTagStore) ListByPost(_ context.Context, _ string) ([]models.Tag, error) {
	return nil, nil
}

func (fakePostTagStore) ListForPosts(_ context.Context, _ []string) (map[string][]models.Tag, error) {
	return map[string][]models.Tag{}, nil
}

func newTestPostService(store *fakePostStore, storage *fakeStorage) *PostService {
	bus := events.NewInprocBus()
	return NewPostService(store, nil, &fakeLikedSetStore{}, fakePostTagStore{}, storage, events.NewPublisher(bus))
}

func testUploads(n int) []Upload {
	uploads := make([]Upload, n)
	for i := range uploads {
		uploads[i] = Upload{
			Filename:    "photo.jpg",
			ContentType: "image/jpeg",
			Size:        1024,
			Body:        strings.NewReader("image-bytes"),
		}
	}
	return uploads
}

func TestNormalizeTags(t *testing.T) {
	t.Run("dedupes case and whitespace variants", func(t *testing.T) {
		tags, err := NormalizeTags([]string{"Basketball", "basketball", " Basketball "})
		require.NoError(t, err)
		assert.Equal(t, []string{"basketball"}, tags)
	})

	t.Run("strips hash prefix", func(t *testing.T) {
		tags, err := NormalizeTags([]string{"#running", "Trail"})
		require.NoError(t, err)
		assert.Equal(t, []string{"running", "trail"}, tags)
	})

	t.Run("skips empty after trim", func(t *testing.T) {
		tags, err := NormalizeTags([]string{"  ", "", "#", "yoga"})
		require.NoError(t, err)
		assert.Equal(t, []string{"yoga"}, tags)
	})

	t.Run("preserves first-seen order", func(t *testing.T) {
		tags, err := NormalizeTags([]string{"swim", "BIKE", "run", "bike"})
		require.NoError(t, err)
		assert.Equal(t, []string{"swim", "bike", "run"}, tags)
	})

	t.Run("rejects overlong tag", func(t *testing.T) {
		_, err := NormalizeTags([]string{strings.Repeat("a", maxTagLength+1)})
		assert.True(t, IsValidation(err))
	})

	t.Run("length limit counts runes not bytes", func(t *testing.T) {
		tags, err := NormalizeTags([]string{strings.Repeat("ü", maxTagLength)})
		require.NoError(t, err)
		assert.Equal(t, []string{strings.Repeat("ü", maxTagLength)}, tags)

		_, err = NormalizeTags([]string{strings.Repeat("ü", maxTagLength+1)})
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects too many tags", func(t *testing.T) {
		names := make([]string, maxTagsPerPost+1)
		for i := range names {
			names[i] = "tag" + strings.Repeat("x", i+1)
		}
		_, err := NormalizeTags(names)
		assert.True(t, IsValidation(err))
	})
}

func TestCreatePost(t *testing.T) {
	t.Run("uploads media then inserts post", func(t *testing.T) {
		store := &fakePostStore{}
		storage := &fakeStorage{}
		svc := newTestPostService(store, storage)

		post, err := svc.Create(context.Background(), "user-1", "first ride", testUploads(2), []string{"Cycling"})
		require.NoError(t, err)

		assert.Equal(t, "user-1", post.UserID)
		require.NotNil(t, post.Caption)
		assert.Equal(t, "first ride", *post.Caption)
		assert.Len(t, post.MediaURLs, 2)
		assert.Len(t, storage.uploads, 2)
		assert.Empty(t, storage.deleted)

		require.Len(t, store.created, 1)
		assert.Equal(t, [][]string{{"cycling"}}, store.tags)
	})

	t.Run("upload failure deletes earlier objects and inserts nothing", func(t *testing.T) {
		store := &fakePostStore{}
		storage := &fakeStorage{failAt: 2}
		svc := newTestPostService(store, storage)

		_, err := svc.Create(context.Background(), "user-1", "", testUploads(3), nil)
		require.Error(t, err)

		assert.Empty(t, store.created)
		require.Len(t, storage.uploads, 1)
		assert.Equal(t, storage.uploads, storage.deleted)
	})

	t.Run("insert failure deletes every uploaded object", func(t *testing.T) {
		store := &fakePostStore{createErr: errors.New("db down")}
		storage := &fakeStorage{}
		svc := newTestPostService(store, storage)

		_, err := svc.Create(context.Background(), "user-1", "", testUploads(2), nil)
		require.Error(t, err)

		assert.Empty(t, store.created)
		assert.ElementsMatch(t, storage.uploads, storage.deleted)
	})

	t.Run("rejects empty and oversized requests", func(t *testing.T) {
		svc := newTestPostService(&fakePostStore{}, &fakeStorage{})

		_, err := svc.Create(context.Background(), "user-1", "", nil, nil)
		assert.True(t, IsValidation(err))

		_, err = svc.Create(context.Background(), "user-1", "", testUploads(maxFilesPerPost+1), nil)
		assert.True(t, IsValidation(err))

		big := testUploads(1)
		big[0].Size = maxUploadFileSize + 1
		_, err = svc.Create(context.Background(), "user-1", "", big, nil)
		assert.True(t, IsValidation(err))
	})
}

func TestDeletePost(t *testing.T) {
	newPost := func(store *fakePostStore, storage *fakeStorage) *models.Post {
		svc := newTestPostService(store, storage)
		post, err := svc.Create(context.Background(), "owner", "", testUploads(1), nil)
		require.NoError(t, err)
		return post
	}

	t.Run("owner delete removes row and media", func(t *testing.T) {
		store := &fakePostStore{}
		storage := &fakeStorage{}
		post := newPost(store, storage)
		svc := newTestPostService(store, storage)

		require.NoError(t, svc.Delete(context.Background(), post.ID, "owner"))
		assert.Equal(t, []string{post.ID}, store.deleted)
		assert.Equal(t, storage.uploads, storage.deleted)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		store := &fakePostStore{}
		storage := &fakeStorage{}
		post := newPost(store, storage)
		svc := newTestPostService(store, storage)

		err := svc.Delete(context.Background(), post.ID, "someone-else")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Empty(t, store.deleted)
		assert.Empty(t, storage.deleted)
	})

	t.Run("missing post", func(t *testing.T) {
		svc := newTestPostService(&fakePostStore{}, &fakeStorage{})
		err := svc.Delete(context.Background(), "nope", "owner")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
