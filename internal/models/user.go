// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// DefaultProfilePic is the picture shown until a user uploads their own.
const DefaultProfilePic = "default.jpg"

// User represents a registered account.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `json:"name"`
	Username   string    `gorm:"not null" json:"username"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"not null" json:"-"`
	Age        int       `json:"age"`
	ProfilePic string    `gorm:"default:default.jpg" json:"profile_pic"`
	Posts      []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasCustomPicture reports whether the user replaced the default picture.
func (u *User) HasCustomPicture() bool {
	return u.ProfilePic != "" && u.ProfilePic != DefaultProfilePic
}
