package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Chats is the repository over the chat_history collection.
type Chats struct {
	coll *mongo.Collection
}

// Insert stores one finished exchange as a user message and an assistant
// response, and returns the new document's hex id.
func (c *Chats) Insert(ctx context.Context, userID, prompt, response, mode, codeContext string) (string, error) {
	now := time.Now().UTC()
	doc := ChatHistory{
		UserID: userID,
		Messages: []ChatMessage{
			{Role: "user", Content: prompt, Timestamp: now},
			{Role: "assistant", Content: response, Timestamp: now},
		},
		Mode:        mode,
		CodeContext: codeContext,
		CreatedAt:   now,
	}

	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("store: insert chat: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

// ByID returns one of the user's chat history entries.
func (c *Chats) ByID(ctx context.Context, id, userID string) (*ChatHistory, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var chat ChatHistory
	err = c.coll.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: chat by id: %w", err)
	}
	return &chat, nil
}

// ListByUser returns the user's chat history, newest first.
func (c *Chats) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]ChatHistory, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := c.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	chats := []ChatHistory{}
	if err := cur.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("store: decode chats: %w", err)
	}
	return chats, nil
}

// Delete removes one of the user's chat history entries.
func (c *Chats) Delete(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("store: delete chat: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
