package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memNotificationStore struct {
	mu    sync.Mutex
	items []*models.Notification
}

func (s *memNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return nil
}

func (s *memNotificationStore) all() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Notification(nil), s.items...)
}

type memAchievementStore struct {
	mu     sync.Mutex
	awards map[string]bool
}

func (s *memAchievementStore) Award(_ context.Context, a *models.Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awards == nil {
		s.awards = make(map[string]bool)
	}
	key := a.UserID + ":" + string(a.Type)
	if s.awards[key] {
		return false, nil
	}
	s.awards[key] = true
	return true, nil
}

func (s *memAchievementStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.awards)
}

type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func (s *memProfileStore) GetByID(_ context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type recordPusher struct {
	mu         sync.Mutex
	pushed     []*models.Notification
	broadcasts []string
}

func (p *recordPusher) PushNotification(_ string, n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, n)
}

func (p *recordPusher) BroadcastPostChange(kind, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, kind)
}

func (p *recordPusher) broadcastKinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.broadcasts...)
}

type consumerEnv struct {
	bus           *InprocBus
	publisher     *Publisher
	consumer      *Consumer
	notifications *memNotificationStore
	achievements  *memAchievementStore
	profiles      *memProfileStore
	pusher        *recordPusher
}

func newConsumerEnv(t *testing.T, profiles map[string]*models.Profile) *consumerEnv {
	t.Helper()

	env := &consumerEnv{
		bus:           NewInprocBus(),
		notifications: &memNotificationStore{},
		achievements:  &memAchievementStore{},
		profiles:      &memProfileStore{profiles: profiles},
		pusher:        &recordPusher{},
	}
	env.publisher = NewPublisher(env.bus)
	env.consumer = NewConsumer(env.bus, env.notifications, env.achievements, env.profiles, env.pusher)
	require.NoError(t, env.consumer.Start())

	t.Cleanup(func() {
		env.consumer.Stop()
		env.bus.Close()
	})
	return env
}

func TestConsumerLikeNotification(t *testing.T) {
	env := newConsumerEnv(t, nil)

	env.publisher.PostLiked(PostLikedEvent{
		PostID:      "post-1",
		PostOwnerID: "owner",
		LikerID:     "liker",
		CreatedAt:   time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(env.notifications.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	n := env.notifications.all()[0]
	assert.Equal(t, "owner", n.RecipientID)
	assert.Equal(t, "liker", n.SenderID)
	assert.Equal(t, models.NotificationLike, n.Type)
	require.NotNil(t, n.PostID)
	assert.Equal(t, "post-1", *n.PostID)
	assert.NotEmpty(t, n.ID)
}

func TestConsumerSelfLikeSkipped(t *testing.T) {
	env := newConsumerEnv(t, nil)

	env.publisher.PostLiked(PostLikedEvent{
		PostID:      "post-1",
		PostOwnerID: "owner",
		LikerID:     "owner",
		CreatedAt:   time.Now(),
	})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, env.notifications.all())
}

func TestConsumerCommentNotification(t *testing.T) {
	env := newConsumerEnv(t, nil)

	env.publisher.PostCommented(PostCommentedEvent{
		PostID:      "post-1",
		CommentID:   "comment-1",
		PostOwnerID: "owner",
		CommenterID: "commenter",
		CreatedAt:   time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(env.notifications.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	n := env.notifications.all()[0]
	assert.Equal(t, models.NotificationComment, n.Type)
	assert.Equal(t, "commented on your post", n.Message)
	require.NotNil(t, n.CommentID)
	assert.Equal(t, "comment-1", *n.CommentID)
}

func TestConsumerFollowNotificationAndAchievement(t *testing.T) {
	env := newConsumerEnv(t, map[string]*models.Profile{
		"followed": {ID: "followed", Username: "followed", FollowersCount: 100},
	})

	env.publisher.ProfileFollowed(ProfileFollowedEvent{
		FollowerID:  "follower",
		FollowingID: "followed",
		CreatedAt:   time.Now(),
	})

	// Follow notification plus the achievement notification.
	require.Eventually(t, func() bool {
		return len(env.notifications.all()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	types := map[models.NotificationType]bool{}
	for _, n := range env.notifications.all() {
		types[n.Type] = true
		assert.Equal(t, "followed", n.RecipientID)
	}
	assert.True(t, types[models.NotificationFollow])
	assert.True(t, types[models.NotificationAchievement])
	assert.Equal(t, 1, env.achievements.count())

	// A repeated event must not award the achievement twice.
	env.publisher.ProfileFollowed(ProfileFollowedEvent{
		FollowerID:  "other",
		FollowingID: "followed",
		CreatedAt:   time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(env.notifications.all()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, env.achievements.count())
}

func TestConsumerPostCreatedBroadcast(t *testing.T) {
	env := newConsumerEnv(t, map[string]*models.Profile{
		"author": {ID: "author", Username: "author", PostsCount: 1},
	})

	env.publisher.PostCreated(PostCreatedEvent{
		PostID:    "post-1",
		AuthorID:  "author",
		CreatedAt: time.Now(),
	})

	require.Eventually(t, func() bool {
		kinds := env.pusher.broadcastKinds()
		return len(kinds) == 1 && kinds[0] == "post_created"
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return env.achievements.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumerPostDeletedBroadcast(t *testing.T) {
	env := newConsumerEnv(t, nil)

	env.publisher.PostDeleted(PostDeletedEvent{PostID: "post-1", AuthorID: "author"})

	require.Eventually(t, func() bool {
		kinds := env.pusher.broadcastKinds()
		return len(kinds) == 1 && kinds[0] == "post_deleted"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumerStopIdempotent(t *testing.T) {
	bus := NewInprocBus()
	defer bus.Close()

	consumer := NewConsumer(bus, &memNotificationStore{}, &memAchievementStore{}, &memProfileStore{}, &recordPusher{})
	require.NoError(t, consumer.Start())

	consumer.Stop()
	consumer.Stop()
}
