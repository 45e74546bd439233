package access

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoOracle answers ownership and permission questions from MongoDB
// "documents" and "document_permissions" collections.
type MongoOracle struct {
	documents   *mongo.Collection
	permissions *mongo.Collection
}

func NewMongoOracle(db *mongo.Database) *MongoOracle {
	return &MongoOracle{
		documents:   db.Collection("documents"),
		permissions: db.Collection("document_permissions"),
	}
}

func (o *MongoOracle) OwnerOf(ctx context.Context, documentID string) (string, error) {
	var doc struct {
		OwnerID string `bson:"owner_id"`
	}
	err := o.documents.FindOne(ctx, bson.M{"_id": documentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrDocumentNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.OwnerID, nil
}

func (o *MongoOracle) RoleOf(ctx context.Context, documentID, userID string) (Role, error) {
	var grant struct {
		Role string `bson:"role"`
	}
	err := o.permissions.FindOne(ctx, bson.M{
		"document_id": documentID,
		"user_id":     userID,
	}).Decode(&grant)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNoGrant
	}
	if err != nil {
		return "", err
	}
	return Role(grant.Role), nil
}
