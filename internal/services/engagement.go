package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"athlos-backend/internal/events"
	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"
)

// ToggleLikeStore is the like storage surface for toggles
type ToggleLikeStore interface {
	Add(ctx context.Context, userID, postID string) (bool, error)
	Remove(ctx context.Context, userID, postID string) (bool, error)
	Exists(ctx context.Context, userID, postID string) (bool, error)
}

// ToggleFollowStore is the follow storage surface for toggles
type ToggleFollowStore interface {
	Add(ctx context.Context, followerID, followingID string) (bool, error)
	Remove(ctx context.Context, followerID, followingID string) (bool, error)
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
}

// PostGetter reads posts for fresh counter values
type PostGetter interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
}

// LeaderboardInvalidator drops cached standings after a follow change
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// ToggleResult is the server-confirmed state after a toggle
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// EngagementService serializes like and follow toggles. At most one toggle
// per (actor, target) pair is in flight; a concurrent second request is
// rejected rather than interleaved.
type EngagementService struct {
	likes       ToggleLikeStore
	follows     ToggleFollowStore
	posts       PostGetter
	leaderboard LeaderboardInvalidator
	publisher   *events.Publisher

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewEngagementService creates a new engagement service
func NewEngagementService(likes ToggleLikeStore, follows ToggleFollowStore, posts PostGetter, leaderboard LeaderboardInvalidator, publisher *events.Publisher) *EngagementService {
	return &EngagementService{
		likes:       likes,
		follows:     follows,
		posts:       posts,
		leaderboard: leaderboard,
		publisher:   publisher,
		inFlight:    make(map[string]struct{}),
	}
}

func (s *EngagementService) acquire(actorID, targetID string) (release func(), err error) {
	key := actorID + ":" + targetID
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return nil, ErrToggleInFlight
	}
	s.inFlight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}, nil
}

// LikePost likes a post for userID. A duplicate like is a no-op. Returns
// the server-confirmed like state and count.
func (s *EngagementService) LikePost(ctx context.Context, userID, postID string) (*ToggleResult, error) {
	release, err := s.acquire(userID, postID)
	if err != nil {
		return nil, err
	}
	defer release()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	created, err := s.likes.Add(ctx, userID, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to like post: %w", err)
	}

	if created {
		s.publisher.PostLiked(events.PostLikedEvent{
			PostID:      postID,
			PostOwnerID: post.UserID,
			LikerID:     userID,
			CreatedAt:   time.Now(),
		})
	}

	return s.likeResult(ctx, userID, postID)
}

// UnlikePost removes userID's like from a post. A redundant unlike is a
// no-op.
func (s *EngagementService) UnlikePost(ctx context.Context, userID, postID string) (*ToggleResult, error) {
	release, err := s.acquire(userID, postID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.likes.Remove(ctx, userID, postID); err != nil {
		return nil, fmt.Errorf("failed to unlike post: %w", err)
	}

	return s.likeResult(ctx, userID, postID)
}

// likeResult re-reads the post so the caller gets the store's value, not a
// client-side estimate
func (s *EngagementService) likeResult(ctx context.Context, userID, postID string) (*ToggleResult, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	active, err := s.likes.Exists(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Active: active, Count: post.LikesCount}, nil
}

// Follow creates a follow edge from followerID to followingID. Self-follow
// is rejected; a duplicate follow is a no-op.
func (s *EngagementService) Follow(ctx context.Context, followerID, followingID string) (*ToggleResult, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}

	release, err := s.acquire(followerID, followingID)
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.follows.Add(ctx, followerID, followingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to follow: %w", err)
	}

	if created {
		s.publisher.ProfileFollowed(events.ProfileFollowedEvent{
			FollowerID:  followerID,
			FollowingID: followingID,
			CreatedAt:   time.Now(),
		})
		s.leaderboard.Invalidate(ctx)
	}

	active, err := s.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Active: active}, nil
}

// Unfollow removes the follow edge if present
func (s *EngagementService) Unfollow(ctx context.Context, followerID, followingID string) (*ToggleResult, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}

	release, err := s.acquire(followerID, followingID)
	if err != nil {
		return nil, err
	}
	defer release()

	removed, err := s.follows.Remove(ctx, followerID, followingID)
	if err != nil {
		return nil, fmt.Errorf("failed to unfollow: %w", err)
	}
	if removed {
		s.leaderboard.Invalidate(ctx)
	}

	active, err := s.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Active: active}, nil
}
