package models

import "time"

// MediaType categorizes an attachment for the aura reward tiers.
type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
	MediaTypeAudio MediaType = "AUDIO"
	MediaTypeCode  MediaType = "CODE"
)

// MediaAttachment is uploaded media metadata. PostID stays NULL until the
// attachment is claimed by a post at submission time; the link is permanent.
type MediaAttachment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UploaderID uint      `json:"uploader_id" gorm:"index"`
	PostID     *uint     `json:"post_id,omitempty" gorm:"index"`
	Type       MediaType `json:"type"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Post represents a social media post stored in PostgreSQL.
// ViewCount is eventually consistent: reads should go through the views cache,
// and this column is refreshed by the reconciliation job.
type Post struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	AuthorID    uint              `json:"author_id" gorm:"index"`
	Content     string            `json:"content"`
	ViewCount   int64             `json:"view_count"`
	Attachments []MediaAttachment `json:"attachments" gorm:"foreignKey:PostID"`
	Tags        []Tag             `json:"tags" gorm:"many2many:post_tags;"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Tag is created on first use and shared across posts. Names are stored
// lowercase; the unique index is what makes the upsert race-safe.
type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"-"`
}

// AuraLogType identifies why a score adjustment was issued.
type AuraLogType string

const (
	AuraLogPostCreation        AuraLogType = "POST_CREATION"
	AuraLogPostAttachmentBonus AuraLogType = "POST_ATTACHMENT_BONUS"
)

// AuraLog is the append-only audit trail of score adjustments. Rows are never
// updated or deleted; the sum of a user's amounts must equal User.AuraScore.
type AuraLog struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	UserID    uint        `json:"user_id" gorm:"index"`
	IssuerID  uint        `json:"issuer_id"`
	Amount    int         `json:"amount"`
	Type      AuraLogType `json:"type"`
	PostID    uint        `json:"post_id" gorm:"index"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateMediaRequest defines the request body for registering an attachment
type CreateMediaRequest struct {
	Type MediaType `json:"type" validate:"required,oneof=IMAGE VIDEO AUDIO CODE"`
	URL  string    `json:"url" validate:"required,url"`
}

// SubmitPostRequest defines the request body for creating a new post
type SubmitPostRequest struct {
	Content  string   `json:"content" validate:"required,min=1,max=2000"`
	MediaIDs []uint   `json:"media_ids,omitempty" validate:"omitempty,max=10"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=5,dive,min=1,max=30"`
}

// UpdatePostTagsRequest defines the request body for replacing a post's tags
type UpdatePostTagsRequest struct {
	Tags []string `json:"tags" validate:"max=5,dive,min=1,max=30"`
}
