package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is a Firestore-backed implementation of DocumentStore and
// SessionStore. Documents live in "documents"; mirror rows in
// "activeSessions", keyed by connection id.
type FirestoreStore struct {
	client      *firestore.Client
	documents   string
	activeConns string
}

// NewFirestoreStore creates a new FirestoreStore using the given Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:      client,
		documents:   "documents",
		activeConns: "activeSessions",
	}
}

func (s *FirestoreStore) docRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.documents).Doc(id)
}

func (s *FirestoreStore) sessionRef(connectionID string) *firestore.DocumentRef {
	return s.client.Collection(s.activeConns).Doc(connectionID)
}

func (s *FirestoreStore) Create(ctx context.Context, id, ownerID, title, content string) error {
	now := time.Now()
	_, err := s.docRef(id).Create(ctx, map[string]interface{}{
		"title":     title,
		"ownerId":   ownerID,
		"content":   content,
		"createdAt": now,
		"updatedAt": now,
	})
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("document %q already exists", id)
	}
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	snap, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("document %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return snapshotToDocInfo(id, snap), nil
}

func snapshotToDocInfo(id string, snap *firestore.DocumentSnapshot) *DocumentInfo {
	data := snap.Data()
	title, _ := data["title"].(string)
	ownerID, _ := data["ownerId"].(string)
	content, _ := data["content"].(string)
	createdAt, _ := data["createdAt"].(time.Time)
	updatedAt, _ := data["updatedAt"].(time.Time)
	lastSavedAt, _ := data["lastSavedAt"].(time.Time)
	return &DocumentInfo{
		ID:          id,
		Title:       title,
		OwnerID:     ownerID,
		Content:     content,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		LastSavedAt: lastSavedAt,
	}
}

func (s *FirestoreStore) List(ctx context.Context) ([]DocumentInfo, error) {
	iter := s.client.Collection(s.documents).Documents(ctx)
	defer iter.Stop()

	var result []DocumentInfo
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *snapshotToDocInfo(snap.Ref.ID, snap))
	}
	return result, nil
}

func (s *FirestoreStore) UpdateContent(ctx context.Context, id, content string) error {
	_, err := s.docRef(id).Update(ctx, []firestore.Update{
		{Path: "content", Value: content},
		{Path: "updatedAt", Value: time.Now()},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("document %q not found", id)
	}
	return err
}

func (s *FirestoreStore) Touch(ctx context.Context, id string) (time.Time, error) {
	now := time.Now()
	_, err := s.docRef(id).Update(ctx, []firestore.Update{
		{Path: "lastSavedAt", Value: now},
	})
	if status.Code(err) == codes.NotFound {
		return time.Time{}, fmt.Errorf("document %q not found", id)
	}
	if err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (s *FirestoreStore) PutSession(ctx context.Context, row SessionRow) error {
	_, err := s.sessionRef(row.ConnectionID).Set(ctx, map[string]interface{}{
		"documentId": row.DocumentID,
		"userId":     row.UserID,
		"cursor":     string(row.Cursor),
		"joinedAt":   time.Now(),
	})
	return err
}

func (s *FirestoreStore) DeleteSession(ctx context.Context, connectionID string) error {
	_, err := s.sessionRef(connectionID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListSessions(ctx context.Context, documentID string) ([]SessionRow, error) {
	iter := s.client.Collection(s.activeConns).
		Where("documentId", "==", documentID).
		Documents(ctx)
	defer iter.Stop()

	var rows []SessionRow
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		data := snap.Data()
		userID, _ := data["userId"].(string)
		cursor, _ := data["cursor"].(string)
		row := SessionRow{
			DocumentID:   documentID,
			UserID:       userID,
			ConnectionID: snap.Ref.ID,
		}
		if cursor != "" {
			row.Cursor = json.RawMessage(cursor)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *FirestoreStore) PurgeSessions(ctx context.Context) error {
	iter := s.client.Collection(s.activeConns).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return err
		}
	}
	return nil
}
