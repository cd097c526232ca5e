package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrForbidden            = errors.New("action forbidden")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrAlreadyFollowing     = errors.New("you already followed this account")
	ErrNotFollowing         = errors.New("you already unfollowed this account")
	ErrUnsupportedMediaType = errors.New("jpg/jpeg/png/mp4 file only")
)

// ValidationError enumerates the missing or malformed request fields.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = "*" + f
	}
	return fmt.Sprintf("please add all required fields; %s", strings.Join(parts, " "))
}
