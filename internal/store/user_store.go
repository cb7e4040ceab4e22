package store

import (
	"context"

	"github.com/RezaEskandarii/driveq/types"
)

// UserStore handles dashboard user accounts.
type UserStore interface {
	// Create adds a new user and returns its ID. An existing user with the same name is replaced.
	Create(ctx context.Context, username, password string) (int64, error)

	// Find looks up a user matching the given username and password.
	// It returns ErrNotFound when the user is unknown or the password does not match.
	Find(ctx context.Context, username, password string) (*types.User, error)

	// FindByUsername returns nil without error when the user does not exist.
	FindByUsername(ctx context.Context, username string) (*types.User, error)

	// Delete removes a user by name.
	Delete(ctx context.Context, username string) error
}
