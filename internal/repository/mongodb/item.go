package mongodb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/repository"
)

// maxCreateAttempts bounds how often Create re-reads the maximum id after
// losing an insert race on the unique id index.
const maxCreateAttempts = 5

var _ repository.ItemRepository = (*ItemDB)(nil)

// numericOrder compares strings holding digits as numbers, so "10" > "9".
var numericOrder = &options.Collation{Locale: "en", NumericOrdering: true}

// ItemDB is the catalog adapter over the secondChanceItems collection. Every
// lookup uses the string "id" field, never _id.
type ItemDB struct {
	coll *mongo.Collection
}

// itemFields holds every stored attribute except age_days, which is typed
// differently on the write and read side.
type itemFields struct {
	ID          string     `bson:"id"`
	Name        string     `bson:"name,omitempty"`
	Category    string     `bson:"category"`
	Condition   string     `bson:"condition"`
	PostedBy    string     `bson:"posted_by,omitempty"`
	Zipcode     string     `bson:"zipcode,omitempty"`
	DateAdded   int64      `bson:"date_added"`
	AgeYears    *float64   `bson:"age_years,omitempty"`
	Description string     `bson:"description"`
	Image       string     `bson:"image,omitempty"`
	UpdatedAt   *time.Time `bson:"updatedAt,omitempty"`
}

// itemDoc is what this adapter writes: age_days is always a double.
type itemDoc struct {
	itemFields `bson:",inline"`
	AgeDays    float64 `bson:"age_days"`
}

// storedItemDoc is what this adapter reads. Documents written by the web
// form keep age_days as the posted string ("400"), so the raw value is
// converted by ageDaysFrom.
type storedItemDoc struct {
	itemFields `bson:",inline"`
	AgeDays    bson.RawValue `bson:"age_days"`
}

func (d *storedItemDoc) toModel() (model.Item, error) {
	age, err := ageDaysFrom(d.AgeDays)
	if err != nil {
		return model.Item{}, fmt.Errorf("mongodb: item %s: %w", d.ID, err)
	}
	return model.Item{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		Condition:   d.Condition,
		PostedBy:    d.PostedBy,
		Zipcode:     d.Zipcode,
		DateAdded:   d.DateAdded,
		AgeDays:     age,
		AgeYears:    d.AgeYears,
		Description: d.Description,
		Image:       d.Image,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// ageDaysFrom accepts any numeric BSON type or a numeric string. A missing
// or null age_days reads as 0.
func ageDaysFrom(rv bson.RawValue) (float64, error) {
	if len(rv.Value) == 0 {
		return 0, nil
	}
	if f, ok := rv.DoubleOK(); ok {
		return f, nil
	}
	if n, ok := rv.Int32OK(); ok {
		return float64(n), nil
	}
	if n, ok := rv.Int64OK(); ok {
		return float64(n), nil
	}
	if str, ok := rv.StringValueOK(); ok {
		str = strings.TrimSpace(str)
		if str == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("age_days %q is not a number", str)
		}
		return f, nil
	}
	return 0, fmt.Errorf("age_days has unsupported BSON type %s", rv.Type)
}

// NextID reads the numerically largest id and returns it plus one. An empty
// collection starts the sequence at "1".
func (i *ItemDB) NextID(ctx context.Context) (string, error) {
	var last itemFields
	err := i.coll.FindOne(ctx, bson.D{},
		options.FindOne().
			SetSort(bson.D{{Key: "id", Value: -1}}).
			SetCollation(numericOrder).
			SetProjection(bson.D{{Key: "id", Value: 1}}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "1", nil
	}
	if err != nil {
		return "", fmt.Errorf("mongodb: reading max item id: %w", err)
	}

	n, err := strconv.ParseInt(last.ID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("mongodb: max item id %q is not an integer: %w", last.ID, err)
	}
	return strconv.FormatInt(n+1, 10), nil
}

// Create assigns id and date_added, then inserts. Reading the max and
// inserting are two round trips; when another writer takes the same id first
// the unique index rejects the insert and Create tries again with a fresh id.
func (i *ItemDB) Create(ctx context.Context, item *model.Item) error {
	dateAdded := time.Now().Unix()

	for attempt := 1; ; attempt++ {
		id, err := i.NextID(ctx)
		if err != nil {
			return err
		}

		doc := itemDoc{
			itemFields: itemFields{
				ID:          id,
				Name:        item.Name,
				Category:    item.Category,
				Condition:   item.Condition,
				PostedBy:    item.PostedBy,
				Zipcode:     item.Zipcode,
				DateAdded:   dateAdded,
				AgeYears:    item.AgeYears,
				Description: item.Description,
				Image:       item.Image,
			},
			AgeDays: item.AgeDays,
		}

		_, err = i.coll.InsertOne(ctx, doc)
		if err == nil {
			item.ID = id
			item.DateAdded = dateAdded
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) || attempt == maxCreateAttempts {
			return translate(err, "Item", "id", "inserting item")
		}
	}
}

func (i *ItemDB) GetByID(ctx context.Context, id string) (*model.Item, error) {
	var doc storedItemDoc
	if err := i.coll.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&doc); err != nil {
		return nil, translate(err, "Item", "id", "finding item "+id)
	}
	item, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns every item in natural order.
func (i *ItemDB) List(ctx context.Context) ([]model.Item, error) {
	cursor, err := i.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing items: %w", err)
	}

	var docs []storedItemDoc
	// All closes the cursor.
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding items: %w", err)
	}

	items := make([]model.Item, 0, len(docs))
	for _, d := range docs {
		item, err := d.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Update $sets the mutable attributes of the item with item.ID.
func (i *ItemDB) Update(ctx context.Context, item *model.Item) error {
	now := time.Now().UTC().Truncate(time.Millisecond)

	set := bson.D{
		{Key: "category", Value: item.Category},
		{Key: "condition", Value: item.Condition},
		{Key: "age_days", Value: item.AgeDays},
		{Key: "description", Value: item.Description},
		{Key: "updatedAt", Value: now},
	}
	if item.AgeYears != nil {
		set = append(set, bson.E{Key: "age_years", Value: *item.AgeYears})
	}

	res, err := i.coll.UpdateOne(ctx,
		bson.D{{Key: "id", Value: item.ID}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: updating item %s: %w", item.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("Item")
	}

	item.UpdatedAt = &now
	return nil
}

func (i *ItemDB) Delete(ctx context.Context, id string) error {
	res, err := i.coll.DeleteOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return fmt.Errorf("mongodb: deleting item %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("Item")
	}
	return nil
}
