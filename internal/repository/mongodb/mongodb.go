// Package mongodb implements the repository interfaces on MongoDB, using the
// users and secondChanceItems collections.
//
// Uniqueness lives in the database, not in Go:
//   - users.email has a unique index, so two concurrent registrations with the
//     same email cannot both succeed.
//   - secondChanceItems.id has a unique index; ItemDB.Create retries with a
//     fresh id when it loses a race for one.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/repository"
)

const (
	usersCollection = "users"
	itemsCollection = "secondChanceItems"

	disconnectTimeout = 10 * time.Second
)

var _ repository.Store = (*Store)(nil)

// Store owns the client connection pool. It is created once at startup and
// shared by every request.
type Store struct {
	client *mongo.Client
	users  *UserDB
	items  *ItemDB
}

// New connects to uri, verifies the connection and makes sure the unique
// indexes exist.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  &UserDB{coll: db.Collection(usersCollection)},
		items:  &ItemDB{coll: db.Collection(itemsCollection)},
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) Items() repository.ItemRepository { return s.items }

// Close disconnects the client, waiting at most disconnectTimeout for
// in-flight operations.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ensureIndexes is idempotent: creating an index that already exists with the
// same definition is a no-op on the server.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating users.email index: %w", err)
	}

	_, err = s.items.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_id"),
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating secondChanceItems.id index: %w", err)
	}
	return nil
}

// translate maps driver errors onto the apperror taxonomy.
func translate(err error, resource, key, op string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperror.NotFound(resource)
	case mongo.IsDuplicateKeyError(err):
		return apperror.Conflict(resource, key)
	default:
		return fmt.Errorf("mongodb: %s: %w", op, err)
	}
}
