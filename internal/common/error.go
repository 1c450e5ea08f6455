// Package common defines sentinel errors and repository path helpers shared
// by the repopix server and CLI. Callers should use errors.Is to match the
// error values.
package common

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadRequest    = errors.New("bad request")
	ErrUnavailable   = errors.New("server unavailable")
	ErrNotConfigured = errors.New("not configured")
	ErrUnsupported   = errors.New("unsupported operation")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// MarkerName is the placeholder file that makes a directory exist in a
// content store that only knows about files.
const MarkerName = ".gitkeep"
