package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anxiouscrypt/smapp/internal/hasher"
	"github.com/anxiouscrypt/smapp/internal/models"
	"github.com/anxiouscrypt/smapp/internal/store"
)

const strongPassword = "correct horse battery staple"

func newTestService() *UserService {
	return NewUserService(store.NewMemoryStore(), hasher.NewBcryptHasher(bcrypt.MinCost))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username())
	assert.Equal(t, "a@x.com", rec[models.FieldEmail])
	assert.NotContains(t, rec, models.FieldPasswordHash, "hash must never leave the service")

	got, err := svc.Authenticate(ctx, "alice", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username())
	assert.NotContains(t, got, models.FieldPasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := map[string]struct {
		username, email, password string
	}{
		"empty username":   {"", "a@x.com", strongPassword},
		"empty password":   {"alice", "a@x.com", ""},
		"weak password":    {"alice", "a@x.com", "password"},
		"password is name": {"alice", "a@x.com", "alice"},
		"bad email":        {"alice", "not-an-email", strongPassword},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, store.ErrValidation)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@x.com", strongPassword)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestAuthenticateFailureKinds(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	// Wrong password and unknown username are distinct internally so the
	// audit log can tell them apart; the HTTP layer flattens them.
	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, store.ErrInvalidCredential)

	_, err = svc.Authenticate(ctx, "bob", "anything")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Authenticate(ctx, "alice", "")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestUpdateProfilePreservesUntouchedFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	rec, err := svc.UpdateProfile(ctx, "alice", map[string]string{models.FieldEmail: "a2@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "a2@x.com", rec[models.FieldEmail])
	assert.Equal(t, "alice", rec.Username())

	// The untouched credential still works after the merge.
	_, err = svc.Authenticate(ctx, "alice", strongPassword)
	assert.NoError(t, err)
}

func TestUpdateProfileGuardsProtectedFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	for _, fields := range []map[string]string{
		{},
		{models.FieldUsername: "bob"},
		{models.FieldPasswordHash: "own hash"},
		{models.FieldCreatedAt: "1970-01-01T00:00:00Z"},
		{models.FieldEmail: "not-an-email"},
	} {
		_, err := svc.UpdateProfile(ctx, "alice", fields)
		assert.ErrorIs(t, err, store.ErrValidation, "fields=%v", fields)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc := newTestService()

	_, err := svc.UpdateProfile(context.Background(), "ghost", map[string]string{"bio": "boo"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	const newPassword = "horse staple battery incorrect"

	require.ErrorIs(t, svc.ChangePassword(ctx, "alice", "wrong current", newPassword),
		store.ErrInvalidCredential)

	require.NoError(t, svc.ChangePassword(ctx, "alice", strongPassword, newPassword))

	_, err = svc.Authenticate(ctx, "alice", strongPassword)
	assert.ErrorIs(t, err, store.ErrInvalidCredential)
	_, err = svc.Authenticate(ctx, "alice", newPassword)
	assert.NoError(t, err)
}

func TestChangePasswordRejectsWeakNewPassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "alice", strongPassword, "12345")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestDeleteUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, "alice"))

	_, err = svc.GetUser(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, "alice"), store.ErrNotFound)
}

func TestGetUserSanitizes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", strongPassword)
	require.NoError(t, err)

	rec, err := svc.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, rec, models.FieldPasswordHash)
	assert.NotEmpty(t, rec[models.FieldCreatedAt])
}
