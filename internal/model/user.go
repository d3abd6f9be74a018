// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// ID is assigned by the store on creation and never changes. Email is unique
// across all accounts and is stored exactly as submitted (case-sensitive).
//
// WHY `json:"-"` ON PasswordHash?
// The hash must never leave the server. The "-" tag makes encoding/json skip
// the field entirely, so even an accidental writeJSON(w, 200, user) is safe.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"` // nil until the first profile update
}
