package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the account adapter over the users collection.
type UserDB struct {
	coll *mongo.Collection
}

// userDoc is the stored document shape. Field names match documents written
// by earlier versions of the service, so existing data stays readable.
type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"` // bcrypt hash, never plaintext
	FirstName string        `bson:"firstName"`
	LastName  string        `bson:"lastName"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt *time.Time    `bson:"updatedAt,omitempty"`
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Create inserts user. The ObjectID assigned here becomes the account id.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	// Mongo stores milliseconds; truncate so the caller sees what was stored.
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDoc{
		ID:        bson.NewObjectID(),
		Email:     user.Email,
		Password:  user.PasswordHash,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: now,
	}

	if _, err := u.coll.InsertOne(ctx, doc); err != nil {
		return translate(err, "User", "email", "inserting user")
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = nil
	return nil
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDoc
	err := u.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		return nil, translate(err, "User", "email", "finding user by email")
	}
	return doc.toModel(), nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		// Not an ObjectID, so no document can have it.
		return nil, apperror.NotFound("User")
	}

	var doc userDoc
	if err := u.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, translate(err, "User", "id", "finding user "+id)
	}
	return doc.toModel(), nil
}

// UpdateProfile is a single findOneAndUpdate keyed by email that returns the
// post-update document.
func (u *UserDB) UpdateProfile(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "firstName", Value: user.FirstName},
		{Key: "lastName", Value: user.LastName},
		{Key: "updatedAt", Value: now},
	}}}

	var doc userDoc
	err := u.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "email", Value: user.Email}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translate(err, "User", "email", "updating user profile")
	}
	return doc.toModel(), nil
}
