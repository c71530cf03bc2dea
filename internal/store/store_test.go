package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxiouscrypt/smapp/internal/models"
)

// testStoreConformance exercises the UserRecordStore contract shared by
// every backend.
func testStoreConformance(t *testing.T, s UserRecordStore) {
	ctx := context.Background()

	t.Run("create then fetch returns exactly the written fields", func(t *testing.T) {
		fields := map[string]string{
			models.FieldEmail:        "a@x.com",
			models.FieldPasswordHash: "H",
		}
		created, err := s.Create(ctx, "alice", fields)
		require.NoError(t, err)
		assert.Equal(t, "alice", created.Username())

		got, err := s.Fetch(ctx, "alice")
		require.NoError(t, err)
		want := models.Record{
			models.FieldUsername:     "alice",
			models.FieldEmail:        "a@x.com",
			models.FieldPasswordHash: "H",
		}
		assert.Equal(t, want, got)
	})

	t.Run("create rejects duplicate username", func(t *testing.T) {
		_, err := s.Create(ctx, "alice", map[string]string{models.FieldEmail: "other@x.com"})
		require.ErrorIs(t, err, ErrAlreadyExists)

		// The losing create must not have clobbered anything.
		got, err := s.Fetch(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got[models.FieldEmail])
	})

	t.Run("create rejects empty username", func(t *testing.T) {
		_, err := s.Create(ctx, "", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("create rejects fields redefining username", func(t *testing.T) {
		_, err := s.Create(ctx, "mallory", map[string]string{models.FieldUsername: "admin"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("fetch unknown username fails with not found", func(t *testing.T) {
		_, err := s.Fetch(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update merges delta and returns the full record", func(t *testing.T) {
		merged, err := s.Update(ctx, "alice", map[string]string{models.FieldEmail: "a2@x.com"})
		require.NoError(t, err)

		// Full merged record, not a partial echo of the delta.
		want := models.Record{
			models.FieldUsername:     "alice",
			models.FieldEmail:        "a2@x.com",
			models.FieldPasswordHash: "H",
		}
		assert.Equal(t, want, merged)

		got, err := s.Fetch(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("update adds new fields without touching existing ones", func(t *testing.T) {
		merged, err := s.Update(ctx, "alice", map[string]string{"bio": "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", merged["bio"])
		assert.Equal(t, "a2@x.com", merged[models.FieldEmail])
		assert.Equal(t, "H", merged[models.FieldPasswordHash])
	})

	t.Run("update unknown username fails without upserting", func(t *testing.T) {
		_, err := s.Update(ctx, "ghost", map[string]string{models.FieldEmail: "g@x.com"})
		require.ErrorIs(t, err, ErrNotFound)

		_, err = s.Fetch(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update rejects delta redefining username", func(t *testing.T) {
		_, err := s.Update(ctx, "alice", map[string]string{models.FieldUsername: "bob"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		_, err := s.Create(ctx, "temp", map[string]string{models.FieldEmail: "t@x.com"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "temp"))

		_, err = s.Fetch(ctx, "temp")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "temp"), ErrNotFound)
	})
}

func TestMemoryStoreConformance(t *testing.T) {
	testStoreConformance(t, NewMemoryStore())
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx, "alice")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
