package models

import "time"

// Sport is the sport category of a profile
type Sport string

const (
	SportBasketball Sport = "basketball"
	SportSoccer     Sport = "soccer"
	SportTennis     Sport = "tennis"
	SportRunning    Sport = "running"
	SportSwimming   Sport = "swimming"
	SportCycling    Sport = "cycling"
	SportVolleyball Sport = "volleyball"
	SportBaseball   Sport = "baseball"
	SportFootball   Sport = "football"
	SportHockey     Sport = "hockey"
	SportOther      Sport = "other"
)

// Valid reports whether s is a known sport category
func (s Sport) Valid() bool {
	switch s {
	case SportBasketball, SportSoccer, SportTennis, SportRunning, SportSwimming,
		SportCycling, SportVolleyball, SportBaseball, SportFootball, SportHockey, SportOther:
		return true
	}
	return false
}

// NotificationType is the kind of a notification
type NotificationType string

const (
	NotificationLike        NotificationType = "like"
	NotificationComment     NotificationType = "comment"
	NotificationFollow      NotificationType = "follow"
	NotificationMention     NotificationType = "mention"
	NotificationAchievement NotificationType = "achievement"
)

// AchievementType is the kind of an achievement
type AchievementType string

const (
	AchievementFirstPost       AchievementType = "first_post"
	AchievementTenPosts        AchievementType = "ten_posts"
	AchievementHundredFollower AchievementType = "hundred_followers"
	AchievementVerifiedAthlete AchievementType = "verified_athlete"
	AchievementTopContributor  AchievementType = "top_contributor"
	AchievementCommunityLeader AchievementType = "community_leader"
)

// Profile represents a public athlete identity
type Profile struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	Bio             *string   `json:"bio,omitempty"`
	Location        *string   `json:"location,omitempty"`
	Sport           *Sport    `json:"sport,omitempty"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	CoverImageURL   *string   `json:"cover_image_url,omitempty"`
	IsVerified      bool      `json:"is_verified"`
	FollowersCount  int       `json:"followers_count"`
	FollowingCount  int       `json:"following_count"`
	PostsCount      int       `json:"posts_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Post represents a media post by a profile
type Post struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Caption       *string   `json:"caption,omitempty"`
	MediaURLs     []string  `json:"media_urls"`
	MediaType     string    `json:"media_type"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`

	// Joined data, populated by feed/profile reads
	Author  *Profile `json:"author,omitempty"`
	IsLiked bool     `json:"is_liked"`
	Tags    []Tag    `json:"tags,omitempty"`
}

// Like represents a (user, post) like; unique per pair
type Like struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a comment on a post
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Author *Profile `json:"author,omitempty"`
}

// Follow represents a directed follower edge; unique per ordered pair
type Follow struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification represents a notification delivered to a profile
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	SenderID    string           `json:"sender_id"`
	Type        NotificationType `json:"type"`
	PostID      *string          `json:"post_id,omitempty"`
	CommentID   *string          `json:"comment_id,omitempty"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`

	Sender *Profile `json:"sender,omitempty"`
}

// Tag represents a unique free-text tag
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Achievement represents an earned achievement
type Achievement struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        AchievementType `json:"type"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	EarnedAt    time.Time       `json:"earned_at"`
}
