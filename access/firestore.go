package access

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreOracle answers ownership and permission questions from Firestore.
// Documents live in the "documents" collection; grants in a "permissions"
// subcollection keyed by user id.
type FirestoreOracle struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreOracle(client *firestore.Client) *FirestoreOracle {
	return &FirestoreOracle{client: client, collection: "documents"}
}

func (o *FirestoreOracle) docRef(documentID string) *firestore.DocumentRef {
	return o.client.Collection(o.collection).Doc(documentID)
}

func (o *FirestoreOracle) OwnerOf(ctx context.Context, documentID string) (string, error) {
	snap, err := o.docRef(documentID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrDocumentNotFound
	}
	if err != nil {
		return "", err
	}
	owner, _ := snap.Data()["ownerId"].(string)
	return owner, nil
}

func (o *FirestoreOracle) RoleOf(ctx context.Context, documentID, userID string) (Role, error) {
	snap, err := o.docRef(documentID).Collection("permissions").Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrNoGrant
	}
	if err != nil {
		return "", err
	}
	role, _ := snap.Data()["role"].(string)
	return Role(role), nil
}
