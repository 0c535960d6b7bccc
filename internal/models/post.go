package models

import "time"

// Post is a community forum post. Counters are maintained transactionally
// by the like and comment operations.
type Post struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	AuthorName    string    `json:"author_name"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Category      string    `json:"category"`
	ImageURL      string    `json:"image_url,omitempty"`
	Anonymous     bool      `json:"anonymous"`
	IsPinned      bool      `json:"is_pinned"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	LikedByMe     bool      `json:"liked_by_me"`
	SavedByMe     bool      `json:"saved_by_me"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Comment is a reply under a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToggleResult reports the state after a like/save/pin toggle. LikesCount
// is only meaningful for likes.
type ToggleResult struct {
	Active     bool `json:"active"`
	LikesCount int  `json:"likes_count,omitempty"`
}
