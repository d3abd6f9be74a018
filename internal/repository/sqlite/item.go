package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/repository"
)

// compile-time check that *ItemDB implements repository.ItemRepository
var _ repository.ItemRepository = (*ItemDB)(nil)

// ItemDB is the catalog adapter over the secondChanceItems table.
//
// Every method is keyed by the public string id; seq is the integer copy of
// that id used for ordering and for computing the next one.
type ItemDB struct {
	conn *sql.DB
}

const itemColumns = `id, name, category, condition, posted_by, zipcode,
	date_added, age_days, age_years, description, image, updated_at`

// NextID returns the id the next Create would assign: max(id)+1, or "1" for
// an empty catalog.
//
// Create does not call this; it computes the same expression inside its INSERT.
func (i *ItemDB) NextID(ctx context.Context) (string, error) {
	var next int64
	err := i.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM secondChanceItems`,
	).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("sqlite: reading max item id: %w", err)
	}
	return strconv.FormatInt(next, 10), nil
}

// Create assigns the next id and date_added, then persists item.
//
// ATOMIC SEQUENCING:
// The new seq is computed by a sub-select of the INSERT itself. SQLite runs the
// whole statement under its write lock, so two concurrent creators see
// different maxima. The UNIQUE index on seq backs that up.
func (i *ItemDB) Create(ctx context.Context, item *model.Item) error {
	dateAdded := time.Now().Unix()

	var id string
	err := i.conn.QueryRowContext(ctx,
		`INSERT INTO secondChanceItems
		   (id, seq, name, category, condition, posted_by, zipcode,
		    date_added, age_days, age_years, description, image)
		 SELECT CAST(n.seq AS TEXT), n.seq, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM (SELECT COALESCE(MAX(seq), 0) + 1 AS seq FROM secondChanceItems) AS n
		 RETURNING id`,
		item.Name,
		item.Category,
		item.Condition,
		item.PostedBy,
		item.Zipcode,
		dateAdded,
		item.AgeDays,
		nullFloat(item.AgeYears),
		item.Description,
		item.Image,
	).Scan(&id)
	if err != nil {
		return translate(err, "Item", "id", "inserting item")
	}

	item.ID = id
	item.DateAdded = dateAdded
	return nil
}

// GetByID retrieves a single item by its public id.
func (i *ItemDB) GetByID(ctx context.Context, id string) (*model.Item, error) {
	row := i.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM secondChanceItems WHERE id = ?`, id)

	item, err := scanItem(row)
	if err != nil {
		return nil, translate(err, "Item", "id", "getting item "+id)
	}
	return item, nil
}

// List returns every item. The catalog contract is unordered; rows come back
// in id order because that is cheapest for SQLite and stable for tests.
func (i *ItemDB) List(ctx context.Context) ([]model.Item, error) {
	rows, err := i.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM secondChanceItems ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	// CRITICAL: always close rows when done! An open *sql.Rows pins a pool connection.
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}

// Update overwrites the mutable attributes of the item with item.ID.
//
// id, date_added and the attachment are never touched. Same RowsAffected
// pattern as Delete: zero rows means the id does not exist.
func (i *ItemDB) Update(ctx context.Context, item *model.Item) error {
	now := time.Now().UTC()

	result, err := i.conn.ExecContext(ctx,
		`UPDATE secondChanceItems
		 SET category = ?, condition = ?, age_days = ?, age_years = ?,
		     description = ?, updated_at = ?
		 WHERE id = ?`,
		item.Category,
		item.Condition,
		item.AgeDays,
		nullFloat(item.AgeYears),
		item.Description,
		now,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating item %s: %w", item.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item")
	}

	item.UpdatedAt = &now
	return nil
}

// Delete removes an item by its public id.
func (i *ItemDB) Delete(ctx context.Context, id string) error {
	result, err := i.conn.ExecContext(ctx,
		`DELETE FROM secondChanceItems WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item")
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item      model.Item
		ageYears  sql.NullFloat64
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Condition,
		&item.PostedBy,
		&item.Zipcode,
		&item.DateAdded,
		&item.AgeDays,
		&ageYears,
		&item.Description,
		&item.Image,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if ageYears.Valid {
		v := ageYears.Float64
		item.AgeYears = &v
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		item.UpdatedAt = &t
	}
	return &item, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
