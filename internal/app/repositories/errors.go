package repositories

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrPostNotFound         = errors.New("post not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTokenNotFound        = errors.New("refresh token not found")

	// ErrVersionConflict means a compare-and-swap save observed a stale
	// version; the caller should refetch and retry.
	ErrVersionConflict = errors.New("document version conflict")
)
