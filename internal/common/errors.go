// Package common defines sentinel errors and shared constants used by both
// the client and the server. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// record-specific errors
	ErrValidation = errors.New("validation error")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// sync specific errors
	ErrSyncInProgress = errors.New("sync already in progress")
)
