// internal/services/errors.go
package services

import "errors"

// Structural error kinds. These propagate to the API boundary as 4xx
// responses, unlike business-rule rejections which are carried as values
// (see TransitionResult).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)
