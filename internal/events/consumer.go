package events

import (
	"context"
	"errors"
	"time"

	"athlos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NotificationStore persists notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// AchievementStore awards achievements
type AchievementStore interface {
	Award(ctx context.Context, a *models.Achievement) (bool, error)
}

// ProfileStore reads profiles for threshold checks
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Pusher delivers realtime signals to connected clients
type Pusher interface {
	PushNotification(userID string, n *models.Notification)
	BroadcastPostChange(kind, postID string)
}

// Consumer subscribes to engagement events and reconciles the dependent
// state: notification rows, achievements and realtime refetch signals.
// Events are at-least-once; every action here is idempotent or harmless to
// repeat (achievement awards are deduplicated by the store).
type Consumer struct {
	bus           Bus
	notifications NotificationStore
	achievements  AchievementStore
	profiles      ProfileStore
	pusher        Pusher

	subs []Subscription
}

// NewConsumer creates a new consumer
func NewConsumer(bus Bus, notifications NotificationStore, achievements AchievementStore, profiles ProfileStore, pusher Pusher) *Consumer {
	return &Consumer{
		bus:           bus,
		notifications: notifications,
		achievements:  achievements,
		profiles:      profiles,
		pusher:        pusher,
	}
}

// Start subscribes to all engagement subjects
func (c *Consumer) Start() error {
	handlers := map[string]Handler{
		SubjectPostCreated:     c.handlePostCreated,
		SubjectPostDeleted:     c.handlePostDeleted,
		SubjectPostLiked:       c.handlePostLiked,
		SubjectPostCommented:   c.handlePostCommented,
		SubjectProfileFollowed: c.handleProfileFollowed,
	}

	for subject, handler := range handlers {
		sub, err := c.bus.Subscribe(subject, handler)
		if err != nil {
			c.Stop()
			return err
		}
		c.subs = append(c.subs, sub)
	}

	log.Info().Msg("Event consumer started")
	return nil
}

// Stop unsubscribes every subscription exactly once
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("Failed to unsubscribe")
		}
	}
	c.subs = nil
}

func (c *Consumer) handlePostCreated(data []byte) {
	var event PostCreatedEvent
	if err := DecodeEvent(data, &event); err != nil {
		log.Error().Err(err).Msg("Bad post.created event")
		return
	}

	c.pusher.BroadcastPostChange("post_created", event.PostID)
	c.checkPostAchievements(event.AuthorID)
}

func (c *Consumer) handlePostDeleted(data []byte) {
	var event PostDeletedEvent
	if err := DecodeEvent(data, &event); err != nil {
		log.Error().Err(err).Msg("Bad post.deleted event")
		return
	}

	c.pusher.BroadcastPostChange("post_deleted", event.PostID)
}

func (c *Consumer) handlePostLiked(data []byte) {
	var event PostLikedEvent
	if err := DecodeEvent(data, &event); err != nil {
		log.Error().Err(err).Msg("Bad post.liked event")
		return
	}
	if event.LikerID == event.PostOwnerID {
		return
	}

	c.notify(&models.Notification{
		RecipientID: event.PostOwnerID,
		SenderID:    event.LikerID,
		Type:        models.NotificationLike,
		PostID:      &event.PostID,
		Message:     "liked your post",
	})
}

func (c *Consumer) handlePostCommented(data []byte) {
	var event PostCommentedEvent
	if err := DecodeEvent(data, &event); err != nil {
		log.Error().Err(err).Msg("Bad post.commented event")
		return
	}
	if event.CommenterID == event.PostOwnerID {
		return
	}

	c.notify(&models.Notification{
		RecipientID: event.PostOwnerID,
		SenderID:    event.CommenterID,
		Type:        models.NotificationComment,
		PostID:      &event.PostID,
		CommentID:   &event.CommentID,
		Message:     "commented on your post",
	})
}

func (c *Consumer) handleProfileFollowed(data []byte) {
	var event ProfileFollowedEvent
	if err := DecodeEvent(data, &event); err != nil {
		log.Error().Err(err).Msg("Bad profile.followed event")
		return
	}

	c.notify(&models.Notification{
		RecipientID: event.FollowingID,
		SenderID:    event.FollowerID,
		Type:        models.NotificationFollow,
		Message:     "started following you",
	})

	c.checkFollowerAchievements(event.FollowingID)
}

// notify persists a notification and pushes it to the recipient if online
func (c *Consumer) notify(n *models.Notification) {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.notifications.Create(ctx, n); err != nil {
		log.Error().Err(err).
			Str("recipient_id", n.RecipientID).
			Str("type", string(n.Type)).
			Msg("Failed to create notification")
		return
	}

	c.pusher.PushNotification(n.RecipientID, n)
}

func (c *Consumer) checkPostAchievements(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := c.profiles.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile for achievements")
		}
		return
	}

	if profile.PostsCount >= 1 {
		c.award(ctx, userID, models.AchievementFirstPost, "First Post", "Shared a first post")
	}
	if profile.PostsCount >= 10 {
		c.award(ctx, userID, models.AchievementTenPosts, "Ten Posts", "Shared ten posts")
	}
}

func (c *Consumer) checkFollowerAchievements(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := c.profiles.GetByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile for achievements")
		return
	}

	if profile.FollowersCount >= 100 {
		c.award(ctx, userID, models.AchievementHundredFollower, "Hundred Followers", "Reached one hundred followers")
	}
}

func (c *Consumer) award(ctx context.Context, userID string, typ models.AchievementType, title, description string) {
	awarded, err := c.achievements.Award(ctx, &models.Achievement{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Description: &description,
		EarnedAt:    time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", string(typ)).Msg("Failed to award achievement")
		return
	}
	if !awarded {
		return
	}

	c.notify(&models.Notification{
		RecipientID: userID,
		SenderID:    userID,
		Type:        models.NotificationAchievement,
		Message:     "earned the " + title + " achievement",
	})
}
