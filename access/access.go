package access

import (
	"context"
	"errors"
)

// Role is the permission level granted on a document.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoGrant          = errors.New("no permission grant")
)

// Oracle answers ownership and permission questions for documents.
// Failures are surfaced to the caller as-is; no retries.
type Oracle interface {
	// OwnerOf returns the owning user id, or ErrDocumentNotFound.
	OwnerOf(ctx context.Context, documentID string) (string, error)
	// RoleOf returns the role granted to the user on the document, or
	// ErrNoGrant when no explicit grant exists.
	RoleOf(ctx context.Context, documentID, userID string) (Role, error)
}

// CanJoin reports whether the user may join the document: the owner always
// may, otherwise any explicit grant suffices.
func CanJoin(ctx context.Context, o Oracle, documentID, userID string) (bool, error) {
	owner, err := o.OwnerOf(ctx, documentID)
	if err != nil {
		return false, err
	}
	if owner == userID {
		return true, nil
	}
	if _, err := o.RoleOf(ctx, documentID, userID); err != nil {
		if errors.Is(err, ErrNoGrant) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
