package store

import (
	"context"
	"encoding/json"
	"time"
)

// DocumentInfo holds document metadata and content.
type DocumentInfo struct {
	ID          string
	Title       string
	OwnerID     string
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastSavedAt time.Time
}

// DocumentStore abstracts document persistence. The coordinator holds no
// authoritative copy of content; it only relays deltas and writes the latest
// client-reported snapshot.
// Implementations: MemoryStore, FirestoreStore, MongoStore.
type DocumentStore interface {
	Create(ctx context.Context, id, ownerID, title, content string) error
	Get(ctx context.Context, id string) (*DocumentInfo, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	// UpdateContent replaces the content and bumps the updated timestamp.
	// Last write committed wins; there is no versioning.
	UpdateContent(ctx context.Context, id, content string) error
	// Touch records an explicit save checkpoint and returns its timestamp.
	Touch(ctx context.Context, id string) (time.Time, error)
}

// SessionRow mirrors one live connection's presence for external visibility
// across restarts. Not authoritative; the in-memory registry is.
type SessionRow struct {
	DocumentID   string
	UserID       string
	ConnectionID string
	Cursor       json.RawMessage
}

// SessionStore persists presence mirror rows. Rows are keyed by connection
// id; deletes are idempotent.
type SessionStore interface {
	PutSession(ctx context.Context, row SessionRow) error
	DeleteSession(ctx context.Context, connectionID string) error
	ListSessions(ctx context.Context, documentID string) ([]SessionRow, error)
	// PurgeSessions removes every row. Run at startup: after a restart the
	// registry is empty, so any surviving rows are stale.
	PurgeSessions(ctx context.Context) error
}
