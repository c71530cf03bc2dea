package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/anxiouscrypt/smapp/internal/models"
)

// MemoryStore is an in-process UserRecordStore used by tests and local
// development. It mirrors the backend semantics of RedisStore, including
// the rule that a record either fully exists or does not exist at all.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

var _ UserRecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.Record)}
}

// Create stores a new record, rejecting duplicates.
func (s *MemoryStore) Create(ctx context.Context, username string, fields map[string]string) (models.Record, error) {
	if err := validateKey(username); err != nil {
		return nil, err
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[username]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, username)
	}
	rec := make(models.Record, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec[models.FieldUsername] = username
	s.records[username] = rec
	return rec.Clone(), nil
}

// Fetch returns a copy of the stored record.
func (s *MemoryStore) Fetch(ctx context.Context, username string) (models.Record, error) {
	if err := validateKey(username); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[username]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, username)
	}
	return rec.Clone(), nil
}

// Update merges the delta into an existing record and returns the full
// merged record.
func (s *MemoryStore) Update(ctx context.Context, username string, fields map[string]string) (models.Record, error) {
	if err := validateKey(username); err != nil {
		return nil, err
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[username]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, username)
	}
	for k, v := range fields {
		rec[k] = v
	}
	return rec.Clone(), nil
}

// Delete removes the record.
func (s *MemoryStore) Delete(ctx context.Context, username string) error {
	if err := validateKey(username); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[username]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, username)
	}
	delete(s.records, username)
	return nil
}
