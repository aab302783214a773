// ABOUTME: Store interface and data types for cergdb persistence
// ABOUTME: Defines User, Result structs and the Store interface for database operations

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when trying to create a user whose email is taken.
var ErrUserExists = errors.New("user already exists")

// ErrResultNotFound is returned when a result id does not exist.
var ErrResultNotFound = errors.New("result not found")

// ErrResultExists is returned when a rename target id is already taken.
var ErrResultExists = errors.New("result id already exists")

// User represents a registered account. PasswordHash is never serialized
// outward.
type User struct {
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	IsAdmin      bool   `json:"is_admin"`
}

// Result is a named result record. The three JSON columns hold arbitrary
// client-supplied documents; a nil RawMessage means the field was never
// stored.
type Result struct {
	ID        string          `json:"id"`
	Name      *string         `json:"name,omitempty"`
	Category  *string         `json:"category,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timing    json.RawMessage `json:"timing,omitempty"`
	Synthesis json.RawMessage `json:"synthesis,omitempty"`
}

// Store defines the interface for user and result persistence.
//
// Implementations must wrap every read-check-write sequence in a single
// transaction with at least read-committed isolation, so concurrent
// submits, renames and deletes on the same id cannot lose updates or race
// an existence check.
type Store interface {
	// CreateUser is insert-if-absent keyed on email; a duplicate returns
	// ErrUserExists and leaves the stored row untouched.
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, email string) (*User, error)

	// SubmitResult inserts a new row or field-wise merges into an existing
	// one (see mergeResult). RenameResult re-keys a row, checking both ids
	// inside the same transaction. DeleteResult removes a row and returns
	// the prior snapshot.
	SubmitResult(ctx context.Context, result *Result) error
	RenameResult(ctx context.Context, currentID, newID string) error
	DeleteResult(ctx context.Context, id string) (*Result, error)
	ListResults(ctx context.Context, limit, offset int) ([]*Result, error)

	Close() error
}
