package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// RoleAdmin is the role value that grants administrator rights.
const RoleAdmin = "admin"

// ErrUserNotFound is returned by a Directory when no user has the given id.
var ErrUserNotFound = errors.New("user not found")

// Actor is an authenticated caller. It is only ever built from stored
// credentials, never from request payloads.
type Actor struct {
	ID      string
	Name    string
	Email   string
	IsAdmin bool
}

// Owns reports whether the actor is the given owner.
func (a Actor) Owns(ownerID string) bool {
	return a.ID != "" && a.ID == ownerID
}

// User is a registered customer or administrator.
type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Actor converts the user to an authenticated actor.
func (u User) Actor() Actor {
	return Actor{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.Role == RoleAdmin,
	}
}

// APIKeyInfo holds the stored hash of an API key and the user it belongs to.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	User    User
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Directory resolves user contact data by id.
type Directory interface {
	FindUser(ctx context.Context, id string) (*User, error)
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying the authenticated actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
