package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the account adapter over the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, email, password_hash, first_name, last_name, created_at, updated_at`

// Create inserts a new account.
//
// The store assigns the id (an xid: 20 chars, URL-safe, time-sortable) and
// createdAt. A second account with the same email is rejected by the UNIQUE
// index and surfaces as apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	id := xid.New().String()
	now := time.Now().UTC()

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		now,
	)
	if err != nil {
		return translate(err, "User", "email", "inserting user")
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = nil
	return nil
}

// GetByEmail looks an account up by its exact (case-sensitive) email.
// Returns apperror.ErrNotFound if no account uses that email.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "User", "email", "getting user by email")
	}
	return user, nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "User", "id", "getting user "+id)
	}
	return user, nil
}

// UpdateProfile overwrites the name fields of the account with user.Email,
// stamps updated_at and reads the row back, all in one transaction so the
// caller sees exactly what was written.
func (u *UserDB) UpdateProfile(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now().UTC()

	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning profile update: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, updated_at = ?
		 WHERE email = ?`,
		user.FirstName,
		user.LastName,
		now,
		user.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("User")
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email)
	updated, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "User", "email", "reading updated user")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing profile update: %w", err)
	}
	return updated, nil
}

// scanUser reads one users row in userColumns order.
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user      model.User
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		user.UpdatedAt = &t
	}
	return &user, nil
}
