package models

import (
	"time"

	"github.com/samber/lo"
)

// Post represents a user's post with optional images.
type Post struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content   string      `gorm:"type:text" json:"content"`
	Images    []PostImage `gorm:"foreignKey:PostID" json:"images"`
	Likes     []Like      `gorm:"foreignKey:PostID" json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// PostImage is one image of a post; Position keeps upload order.
type PostImage struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	Position int    `gorm:"not null" json:"position"`
	Path     string `gorm:"not null" json:"path"`
}

// Like records that a user likes a post.
// The combination of UserID and PostID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOwnedBy reports whether userID owns the post.
func (p *Post) IsOwnedBy(userID uint) bool {
	return userID != 0 && p.UserID == userID
}

// LikeCount returns the number of users who like the post.
func (p *Post) LikeCount() int {
	return len(p.Likes)
}

// LikedBy reports whether userID is in the post's like set.
func (p *Post) LikedBy(userID uint) bool {
	return lo.ContainsBy(p.Likes, func(l Like) bool { return l.UserID == userID })
}

// ImagePaths returns the image paths in upload order.
func (p *Post) ImagePaths() []string {
	return lo.Map(p.Images, func(img PostImage, _ int) string { return img.Path })
}

// Cover returns the first image path, or "" when the post has no images.
func (p *Post) Cover() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Path
}
