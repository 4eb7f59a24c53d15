package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Users is the repository over the users collection.
type Users struct {
	coll *mongo.Collection
}

// Create inserts a new user and returns it with its assigned id.
func (u *Users) Create(ctx context.Context, username, email, hashedPassword string) (*User, error) {
	user := User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
		IsActive:       true,
	}

	res, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return &user, nil
}

// ByEmail looks a user up by email.
func (u *Users) ByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: user by email: %w", err)
	}
	return &user, nil
}

// ByID looks a user up by its hex object id.
func (u *Users) ByID(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var user User
	err = u.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: user by id: %w", err)
	}
	return &user, nil
}

// EmailExists reports whether an account already uses the email.
func (u *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	count, err := u.coll.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("store: email exists: %w", err)
	}
	return count > 0, nil
}
