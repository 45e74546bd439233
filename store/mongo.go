package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a MongoDB-backed implementation of DocumentStore and
// SessionStore. Documents live in "documents"; mirror rows in
// "active_sessions", keyed by connection id.
type MongoStore struct {
	documents *mongo.Collection
	sessions  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		documents: db.Collection("documents"),
		sessions:  db.Collection("active_sessions"),
	}
}

type mongoDocument struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	OwnerID     string    `bson:"owner_id"`
	Content     string    `bson:"content"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	LastSavedAt time.Time `bson:"last_saved_at,omitempty"`
}

func (d mongoDocument) info() DocumentInfo {
	return DocumentInfo{
		ID:          d.ID,
		Title:       d.Title,
		OwnerID:     d.OwnerID,
		Content:     d.Content,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		LastSavedAt: d.LastSavedAt,
	}
}

func (s *MongoStore) Create(ctx context.Context, id, ownerID, title, content string) error {
	now := time.Now()
	_, err := s.documents.InsertOne(ctx, mongoDocument{
		ID:        id,
		Title:     title,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("document %q already exists", id)
	}
	return err
}

func (s *MongoStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	var doc mongoDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("document %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	info := doc.info()
	return &info, nil
}

func (s *MongoStore) List(ctx context.Context) ([]DocumentInfo, error) {
	cur, err := s.documents.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var result []DocumentInfo
	for cur.Next(ctx) {
		var doc mongoDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.info())
	}
	return result, cur.Err()
}

func (s *MongoStore) UpdateContent(ctx context.Context, id, content string) error {
	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"content":    content,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("document %q not found", id)
	}
	return nil
}

func (s *MongoStore) Touch(ctx context.Context, id string) (time.Time, error) {
	now := time.Now()
	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_saved_at": now},
	})
	if err != nil {
		return time.Time{}, err
	}
	if res.MatchedCount == 0 {
		return time.Time{}, fmt.Errorf("document %q not found", id)
	}
	return now, nil
}

func (s *MongoStore) PutSession(ctx context.Context, row SessionRow) error {
	doc := bson.M{
		"document_id": row.DocumentID,
		"user_id":     row.UserID,
		"created_at":  time.Now(),
	}
	if len(row.Cursor) > 0 {
		doc["cursor_position"] = string(row.Cursor)
	}
	_, err := s.sessions.ReplaceOne(ctx,
		bson.M{"_id": row.ConnectionID},
		doc,
		options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) DeleteSession(ctx context.Context, connectionID string) error {
	_, err := s.sessions.DeleteOne(ctx, bson.M{"_id": connectionID})
	return err
}

func (s *MongoStore) ListSessions(ctx context.Context, documentID string) ([]SessionRow, error) {
	cur, err := s.sessions.Find(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []SessionRow
	for cur.Next(ctx) {
		var sess struct {
			ConnectionID string `bson:"_id"`
			DocumentID   string `bson:"document_id"`
			UserID       string `bson:"user_id"`
			Cursor       string `bson:"cursor_position,omitempty"`
		}
		if err := cur.Decode(&sess); err != nil {
			return nil, err
		}
		row := SessionRow{
			DocumentID:   sess.DocumentID,
			UserID:       sess.UserID,
			ConnectionID: sess.ConnectionID,
		}
		if sess.Cursor != "" {
			row.Cursor = []byte(sess.Cursor)
		}
		rows = append(rows, row)
	}
	return rows, cur.Err()
}

func (s *MongoStore) PurgeSessions(ctx context.Context) error {
	_, err := s.sessions.DeleteMany(ctx, bson.M{})
	return err
}
