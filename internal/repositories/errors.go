package repositories

import "errors"

// Sentinel errors surfaced to handlers so they can pick the right HTTP status.
var (
	ErrPostNotFound  = errors.New("post not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrMediaNotFound = errors.New("one or more media attachments not found")
	ErrNotPostAuthor = errors.New("caller is not the post author")
)
