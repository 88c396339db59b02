package models

import "time"

// Bookmark represents a post saved by a user for later
type Bookmark struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_user_post"`
	PostID    uint      `json:"post_id" gorm:"uniqueIndex:idx_user_post"`
	CreatedAt time.Time `json:"created_at"`
}
