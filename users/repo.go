package users

import "context"

// Directory is the user store consumed by the authentication core.
// Lookups of a missing user return an error wrapping errors.ErrUserNotFound.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	// Create stores a new identity. passwordHash is empty for federated accounts.
	Create(ctx context.Context, email, passwordHash string, federated bool) (*User, error)
}
