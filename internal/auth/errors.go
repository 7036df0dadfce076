package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidHash is returned when a stored password hash cannot be parsed.
	ErrInvalidHash = errors.New("auth: invalid password hash")

	// ErrTokenInvalid is returned for a token with a bad signature, an
	// expired lifetime or missing claims.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrNotConfigured is returned when no operator account is set up.
	ErrNotConfigured = errors.New("auth: operator not configured")
)
