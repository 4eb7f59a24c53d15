// Package store persists users, code snippets, and chat history in MongoDB.
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

// ErrNotFound is returned when a document does not exist or is not visible
// to the requesting user.
var ErrNotFound = errors.New("store: not found")

const connectTimeout = 10 * time.Second

// Store wraps the Mongo client and exposes the collection repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	Users    *Users
	Snippets *Snippets
	Chats    *Chats
}

// Connect dials MongoDB, verifies the connection, and builds the
// repositories.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:   client,
		db:       db,
		Users:    &Users{coll: db.Collection("users")},
		Snippets: &Snippets{coll: db.Collection("snippets")},
		Chats:    &Chats{coll: db.Collection("chat_history")},
	}, nil
}

// EnsureIndexes creates the collection indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "username", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("store: users indexes: %w", err)
	}

	_, err = s.db.Collection("snippets").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_public", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("store: snippets indexes: %w", err)
	}

	_, err = s.db.Collection("chat_history").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("store: chat_history indexes: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
