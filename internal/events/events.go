package events

import "time"

// Subjects for engagement events
const (
	SubjectPostCreated     = "post.created"
	SubjectPostDeleted     = "post.deleted"
	SubjectPostLiked       = "post.liked"
	SubjectPostCommented   = "post.commented"
	SubjectProfileFollowed = "profile.followed"
)

// PostCreatedEvent is published when a post is created
type PostCreatedEvent struct {
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDeletedEvent is published when a post is deleted
type PostDeletedEvent struct {
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
}

// PostLikedEvent is published when a like is newly created
type PostLikedEvent struct {
	PostID      string    `json:"post_id"`
	PostOwnerID string    `json:"post_owner_id"`
	LikerID     string    `json:"liker_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostCommentedEvent is published when a comment is created
type PostCommentedEvent struct {
	PostID      string    `json:"post_id"`
	CommentID   string    `json:"comment_id"`
	PostOwnerID string    `json:"post_owner_id"`
	CommenterID string    `json:"commenter_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileFollowedEvent is published when a follow edge is newly created
type ProfileFollowedEvent struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
