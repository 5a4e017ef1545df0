package services

import (
	"context"
	"time"

	"athlos-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	leaderboardKey      = "leaderboard:followers"
	leaderboardTTL      = time.Minute
	defaultBoardLimit   = 50
	maxBoardLimit       = 100
	leaderboardCapacity = 200
)

// TopProfileStore reads profiles for the leaderboard
type TopProfileStore interface {
	Top(ctx context.Context, limit int) ([]*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// LeaderboardService ranks profiles by followers count. Standings are
// cached in a Redis sorted set with a short TTL; cached counts are never
// written back to the store.
type LeaderboardService struct {
	profiles TopProfileStore
	cache    *redis.Client
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(profiles TopProfileStore, cache *redis.Client) *LeaderboardService {
	return &LeaderboardService{profiles: profiles, cache: cache}
}

// Top retrieves the highest-followed profiles, from cache when warm
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		limit = defaultBoardLimit
	}
	if limit > maxBoardLimit {
		limit = maxBoardLimit
	}

	if profiles := s.fromCache(ctx, limit); profiles != nil {
		return profiles, nil
	}

	profiles, err := s.profiles.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, profiles)
	return profiles, nil
}

// Invalidate drops the cached standings; called after a follow change
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, leaderboardKey).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}
}

func (s *LeaderboardService) fromCache(ctx context.Context, limit int) []*models.Profile {
	if s.cache == nil {
		return nil
	}

	ids, err := s.cache.ZRevRange(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil || len(ids) == 0 {
		return nil
	}

	profiles := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		profile, err := s.profiles.GetByID(ctx, id)
		if err != nil {
			// A profile deleted since the cache was filled; rebuild on
			// the next read.
			s.Invalidate(ctx)
			return nil
		}
		profiles = append(profiles, profile)
	}
	return profiles
}

func (s *LeaderboardService) fill(ctx context.Context, profiles []*models.Profile) {
	if s.cache == nil || len(profiles) == 0 {
		return
	}

	pipe := s.cache.Pipeline()
	for _, p := range profiles {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  float64(p.FollowersCount),
			Member: p.ID,
		})
	}
	pipe.ZRemRangeByRank(ctx, leaderboardKey, 0, -int64(leaderboardCapacity)-1)
	pipe.Expire(ctx, leaderboardKey, leaderboardTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to fill leaderboard cache")
	}
}
