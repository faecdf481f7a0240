package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a caller writes a record owned by someone else.
	ErrForbidden = errors.New("record owned by another user")
)

// DataStore defines the interface for persistent storage of users.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, publicKey, name, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByPublicKey(ctx context.Context, publicKey string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, name, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Notifier is told the name of a stream after every write to it.
type Notifier interface {
	Publish(ctx context.Context, stream string) error
}
