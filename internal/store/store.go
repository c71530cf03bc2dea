package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/anxiouscrypt/smapp/internal/models"
)

// Sentinel errors returned by every UserRecordStore implementation.
// Callers classify with errors.Is; the HTTP layer maps them to status
// codes.
var (
	// ErrNotFound indicates no record exists under the given username.
	ErrNotFound = errors.New("user record not found")

	// ErrAlreadyExists indicates a create collided with an existing record.
	ErrAlreadyExists = errors.New("user record already exists")

	// ErrInvalidCredential indicates a credential check failed against an
	// existing record.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrValidation indicates empty or malformed caller input.
	ErrValidation = errors.New("invalid input")

	// ErrBackendUnavailable indicates the key-value backend could not be
	// reached within the operation's deadline.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// UserRecordStore is the sole point of access to user records in the
// key-value backend. Implementations hold no mutable in-process state
// and are safe for concurrent use; all state lives in the backend.
//
// A record either fully exists or does not exist at all: reads never
// expose partial field sets, and the username field is written with
// the record so a live key always carries at least one field.
type UserRecordStore interface {
	// Create writes fields (plus the username itself) under a new record.
	// Fails with ErrAlreadyExists when a record is already present, unless
	// the implementation was configured for legacy overwrite semantics.
	Create(ctx context.Context, username string, fields map[string]string) (models.Record, error)

	// Fetch reads the complete field set for username, or ErrNotFound.
	Fetch(ctx context.Context, username string) (models.Record, error)

	// Update merges fields into an existing record and returns the full
	// merged record, not just the submitted delta. Fields absent from the
	// input are left untouched. Fails with ErrNotFound when the record
	// does not exist; there is no implicit upsert.
	Update(ctx context.Context, username string, fields map[string]string) (models.Record, error)

	// Delete removes the record, or ErrNotFound if it was never created.
	Delete(ctx context.Context, username string) error
}

// validateKey rejects usernames that cannot serve as a storage key.
func validateKey(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username must not be empty", ErrValidation)
	}
	return nil
}

// validateFields rejects deltas that try to redefine the record identity
// or smuggle in credential material through a profile path. The store
// only guards the identity field; credential policy lives in the service
// layer.
func validateFields(fields map[string]string) error {
	if _, ok := fields[models.FieldUsername]; ok {
		return fmt.Errorf("%w: fields must not redefine username", ErrValidation)
	}
	return nil
}
