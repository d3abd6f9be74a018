// Package repository declares the store contracts the services depend on.
//
// Two adapters implement them: repository/sqlite (embedded, default) and
// repository/mongodb (document store with the users and secondChanceItems
// collections). Both translate store-native errors into
// apperror values:
//
//   - missing record        → apperror.ErrNotFound
//   - unique index violated → apperror.ErrConflict
//
// Anything else is returned wrapped and treated as an infrastructure failure.
package repository

import (
	"context"

	"github.com/sakif/secondchance/internal/model"
)

// UserRepository persists accounts. Email uniqueness is enforced by the store
// (unique index), not by a check-then-insert in application code.
type UserRepository interface {
	// Create inserts user and fills in ID and CreatedAt.
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	// UpdateProfile atomically overwrites FirstName, LastName and UpdatedAt
	// of the account matching user.Email and returns the stored result.
	UpdateProfile(ctx context.Context, user *model.User) (*model.User, error)
}

// ItemRepository persists catalog items keyed by their string id field, never
// by the store's internal record key.
type ItemRepository interface {
	// NextID returns max(id)+1 as a decimal string, or "1" for an empty catalog.
	NextID(ctx context.Context) (string, error)
	// Create assigns ID and DateAdded, then persists item.
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id string) (*model.Item, error)
	List(ctx context.Context) ([]model.Item, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id string) error
}

// Store bundles the repositories of one backend with its lifecycle.
type Store interface {
	Users() UserRepository
	Items() ItemRepository
	Close() error
}
