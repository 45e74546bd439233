package auth

import (
	"context"
	"errors"
)

// User is a resolved identity, bound to a connection at handshake time.
type User struct {
	ID    string
	Name  string
	Email string
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
)

// Verifier validates a bearer credential and resolves it to a user id.
// Verification is purely local (signature + expiry); it does not consult
// any user record.
type Verifier interface {
	Verify(token string) (string, error)
}

// UserDirectory resolves a user id to its profile.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (*User, error)
}
