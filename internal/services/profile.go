package services

import (
	"context"
	"errors"
	"strings"

	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"
)

const (
	maxBioLength      = 500
	maxLocationLength = 100
	maxFullNameLength = 100
	searchLimit       = 30
	followListLimit   = 100
)

// ProfileStore is the profile storage surface the profile service needs
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	Search(ctx context.Context, query string, limit int) ([]*models.Profile, error)
}

// FollowListStore reads follower and following lists
type FollowListStore interface {
	Followers(ctx context.Context, userID string, limit int) ([]*models.Profile, error)
	Following(ctx context.Context, userID string, limit int) ([]*models.Profile, error)
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
}

// AchievementListStore reads a profile's achievements
type AchievementListStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Achievement, error)
}

// ProfileUpdate carries the editable profile fields. Nil pointer fields
// were not sent and keep their stored values.
type ProfileUpdate struct {
	FullName string  `json:"full_name"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
	Sport    *string `json:"sport"`
}

// ProfileService handles profile reads and updates
type ProfileService struct {
	profiles     ProfileStore
	follows      FollowListStore
	achievements AchievementListStore
	storage      Storage
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, follows FollowListStore, achievements AchievementListStore, storage Storage) *ProfileService {
	return &ProfileService{
		profiles:     profiles,
		follows:      follows,
		achievements: achievements,
		storage:      storage,
	}
}

// Get retrieves a profile by id
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// GetByUsername retrieves a profile by username
func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.profiles.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// IsFollowing reports whether viewerID follows userID
func (s *ProfileService) IsFollowing(ctx context.Context, viewerID, userID string) (bool, error) {
	return s.follows.Exists(ctx, viewerID, userID)
}

// Update applies the editable fields to the acting profile
func (s *ProfileService) Update(ctx context.Context, userID string, update ProfileUpdate) (*models.Profile, error) {
	fullName := strings.TrimSpace(update.FullName)
	if fullName == "" {
		return nil, validationf("full_name is required")
	}
	if len(fullName) > maxFullNameLength {
		return nil, validationf("full_name too long")
	}
	if update.Bio != nil && len(*update.Bio) > maxBioLength {
		return nil, validationf("bio too long")
	}
	if update.Location != nil && len(*update.Location) > maxLocationLength {
		return nil, validationf("location too long")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Nil pointers mean "not sent"; a field is cleared by sending it empty.
	profile.FullName = fullName
	if update.Bio != nil {
		profile.Bio = update.Bio
	}
	if update.Location != nil {
		profile.Location = update.Location
	}
	if update.Sport != nil {
		raw := strings.ToLower(strings.TrimSpace(*update.Sport))
		if raw == "" {
			profile.Sport = nil
		} else {
			sport := models.Sport(raw)
			if !sport.Valid() {
				return nil, validationf("unknown sport category")
			}
			profile.Sport = &sport
		}
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// SetImage uploads a profile or cover image and stores its URL
func (s *ProfileService) SetImage(ctx context.Context, userID string, upload Upload, cover bool) (*models.Profile, error) {
	if upload.Size > maxUploadFileSize {
		return nil, validationf("image file too large")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := MediaKey(userID, upload.Filename)
	if err := s.storage.Upload(ctx, key, upload.ContentType, upload.Body); err != nil {
		return nil, err
	}
	url := s.storage.PublicURL(key)

	if cover {
		profile.CoverImageURL = &url
	} else {
		profile.ProfileImageURL = &url
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		// The profile row did not change; remove the orphaned object.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, err
	}
	return profile, nil
}

// Search finds profiles matching the query by username or full name
func (s *ProfileService) Search(ctx context.Context, query string) ([]*models.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationf("search query is required")
	}
	return s.profiles.Search(ctx, query, searchLimit)
}

// Followers retrieves the profiles following userID
func (s *ProfileService) Followers(ctx context.Context, userID string) ([]*models.Profile, error) {
	return s.follows.Followers(ctx, userID, followListLimit)
}

// Following retrieves the profiles userID follows
func (s *ProfileService) Following(ctx context.Context, userID string) ([]*models.Profile, error) {
	return s.follows.Following(ctx, userID, followListLimit)
}

// Achievements retrieves a profile's achievements
func (s *ProfileService) Achievements(ctx context.Context, userID string) ([]*models.Achievement, error) {
	return s.achievements.ListByUser(ctx, userID)
}
