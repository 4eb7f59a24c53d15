package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when no token was supplied.
	ErrMissingCredential = errors.New("auth: missing credential")
	// ErrUnknownUser is returned when the token subject resolves to no user.
	ErrUnknownUser = errors.New("auth: unknown user")
	// ErrInactiveUser is returned when the resolved user is deactivated.
	ErrInactiveUser = errors.New("auth: inactive user")
)

// Identity is the immutable identity attached to a session after a
// successful authentication.
type Identity struct {
	ID       string
	Username string
}

// User is the directory view of an account as the gate needs it.
type User struct {
	ID       string
	Username string
	Email    string
	Active   bool
}

// Directory resolves token subjects to user accounts.
type Directory interface {
	UserByID(ctx context.Context, id string) (*User, error)
}

// Gate validates bearer credentials and binds them to an identity before a
// session is admitted to the system.
type Gate struct {
	tokens *Tokens
	dir    Directory
}

// NewGate creates a session gate backed by the given token verifier and user
// directory.
func NewGate(tokens *Tokens, dir Directory) *Gate {
	return &Gate{tokens: tokens, dir: dir}
}

// Authenticate decodes the credential, resolves its subject, and returns the
// identity for the session. Any failure means the connection must be rejected
// before frames are exchanged.
func (g *Gate) Authenticate(ctx context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrMissingCredential
	}

	subject, err := g.tokens.Verify(credential)
	if err != nil {
		return Identity{}, err
	}

	user, err := g.dir.UserByID(ctx, subject)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: resolve user: %w", err)
	}
	if user == nil {
		return Identity{}, ErrUnknownUser
	}
	if !user.Active {
		return Identity{}, ErrInactiveUser
	}

	return Identity{ID: user.ID, Username: user.Username}, nil
}
