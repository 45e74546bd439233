package auth

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDirectory resolves users from a Firestore "users" collection.
type FirestoreDirectory struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreDirectory(client *firestore.Client) *FirestoreDirectory {
	return &FirestoreDirectory{client: client, collection: "users"}
}

func (d *FirestoreDirectory) Lookup(ctx context.Context, userID string) (*User, error) {
	snap, err := d.client.Collection(d.collection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	data := snap.Data()
	name, _ := data["name"].(string)
	email, _ := data["email"].(string)
	return &User{ID: userID, Name: name, Email: email}, nil
}
