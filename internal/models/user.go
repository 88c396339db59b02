package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User represents a registered account stored in PostgreSQL.
// AuraScore is the cumulative gamified score; this service only ever credits
// it, and only inside the same transaction that writes the matching AuraLog rows.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex"`
	Email       string    `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Password    string    `json:"-"`                        // Store hashed password, ignore for JSON serialization
	DisplayName string    `json:"display_name"`
	AuraScore   int64     `json:"aura_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

type SignupRequest struct {
	Username    string `json:"username" validate:"required,min=2,max=30,alphanum"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"omitempty,max=50"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
