package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account document.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	HashedPassword string             `bson:"hashed_password" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
}

// Snippet is a saved code snippet document.
type Snippet struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Title       string             `bson:"title" json:"title"`
	Code        string             `bson:"code" json:"code"`
	Language    string             `bson:"language" json:"language"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsPublic    bool               `bson:"is_public" json:"is_public"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// ChatMessage is one turn inside a stored chat exchange.
type ChatMessage struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ChatHistory is one persisted prompt/response exchange.
type ChatHistory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Messages    []ChatMessage      `bson:"messages" json:"messages"`
	Mode        string             `bson:"mode" json:"mode"`
	CodeContext string             `bson:"code_context,omitempty" json:"code_context,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
