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

// Snippets is the repository over the snippets collection.
type Snippets struct {
	coll *mongo.Collection
}

// SnippetInput carries the client-editable snippet fields.
type SnippetInput struct {
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"is_public"`
}

// Create inserts a snippet owned by the user.
func (s *Snippets) Create(ctx context.Context, userID string, in SnippetInput) (*Snippet, error) {
	now := time.Now().UTC()
	snippet := Snippet{
		UserID:      userID,
		Title:       in.Title,
		Code:        in.Code,
		Language:    in.Language,
		Description: in.Description,
		Tags:        in.Tags,
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.coll.InsertOne(ctx, snippet)
	if err != nil {
		return nil, fmt.Errorf("store: create snippet: %w", err)
	}
	snippet.ID = res.InsertedID.(primitive.ObjectID)
	return &snippet, nil
}

// ByID returns a snippet visible to the user: their own, or a public one.
func (s *Snippets) ByID(ctx context.Context, id, userID string) (*Snippet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	filter := bson.M{
		"_id": oid,
		"$or": bson.A{
			bson.M{"user_id": userID},
			bson.M{"is_public": true},
		},
	}

	var snippet Snippet
	err = s.coll.FindOne(ctx, filter).Decode(&snippet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: snippet by id: %w", err)
	}
	return &snippet, nil
}

// ListByUser returns the user's snippets, newest first.
func (s *Snippets) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]Snippet, error) {
	return s.list(ctx, bson.M{"user_id": userID}, skip, limit)
}

// ListPublic returns public snippets, newest first.
func (s *Snippets) ListPublic(ctx context.Context, skip, limit int64) ([]Snippet, error) {
	return s.list(ctx, bson.M{"is_public": true}, skip, limit)
}

func (s *Snippets) list(ctx context.Context, filter bson.M, skip, limit int64) ([]Snippet, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: list snippets: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	snippets := []Snippet{}
	if err := cur.All(ctx, &snippets); err != nil {
		return nil, fmt.Errorf("store: decode snippets: %w", err)
	}
	return snippets, nil
}

// Update applies the input to a snippet the user owns.
func (s *Snippets) Update(ctx context.Context, id, userID string, in SnippetInput) (*Snippet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"title":       in.Title,
		"code":        in.Code,
		"language":    in.Language,
		"description": in.Description,
		"tags":        in.Tags,
		"is_public":   in.IsPublic,
		"updated_at":  time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var snippet Snippet
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "user_id": userID}, update, opts).Decode(&snippet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: update snippet: %w", err)
	}
	return &snippet, nil
}

// Delete removes a snippet the user owns.
func (s *Snippets) Delete(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("store: delete snippet: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
