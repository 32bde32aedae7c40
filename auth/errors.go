package auth

import "errors"

// Domain errors for the auth service
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnavailable        = errors.New("authentication requires a cloud account configuration")

	ErrNoSession    = errors.New("no active session")
	ErrNoTokenKey   = errors.New("no session token secret configured")
	ErrInvalidToken = errors.New("invalid or expired session token")
)
