package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/nbutton23/zxcvbn-go"
	"github.com/rs/zerolog/log"

	"github.com/anxiouscrypt/smapp/internal/hasher"
	"github.com/anxiouscrypt/smapp/internal/models"
	"github.com/anxiouscrypt/smapp/internal/store"
)

// minPasswordScore is the minimum zxcvbn strength score (0..4) a
// password must reach on registration and password change.
const minPasswordScore = 2

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (models.Record, error)
	GetUser(ctx context.Context, username string) (models.Record, error)
	UpdateProfile(ctx context.Context, username string, fields map[string]string) (models.Record, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
	Authenticate(ctx context.Context, username, password string) (models.Record, error)
	DeleteUser(ctx context.Context, username string) error
}

// UserService provides business logic for user management on top of a
// UserRecordStore. Credentials are stored only as salted one-way hashes
// produced by the injected hasher; no plaintext ever reaches the
// backend, and no hash ever leaves this package.
type UserService struct {
	store  store.UserRecordStore
	hasher hasher.PasswordHasher
}

var _ UserServiceProvider = (*UserService)(nil)

// NewUserService creates a new UserService.
func NewUserService(s store.UserRecordStore, h hasher.PasswordHasher) *UserService {
	return &UserService{store: s, hasher: h}
}

// Register validates the registration input, hashes the password and
// creates the record.
func (s *UserService) Register(ctx context.Context, username, email, password string) (models.Record, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username must be supplied", store.ErrValidation)
	}
	if err := validatePassword(password, username, email); err != nil {
		return nil, err
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email address", store.ErrValidation)
		}
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	fields := map[string]string{
		models.FieldPasswordHash: passwordHash,
		models.FieldCreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if email != "" {
		fields[models.FieldEmail] = email
	}

	rec, err := s.store.Create(ctx, username, fields)
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Msg("user registered")
	return rec.Sanitized(), nil
}

// GetUser retrieves a single user record by username.
func (s *UserService) GetUser(ctx context.Context, username string) (models.Record, error) {
	rec, err := s.store.Fetch(ctx, username)
	if err != nil {
		return nil, err
	}
	return rec.Sanitized(), nil
}

// UpdateProfile merges profile fields into an existing record and
// returns the full merged record. Identity and credential fields cannot
// be changed through this path.
func (s *UserService) UpdateProfile(ctx context.Context, username string, fields map[string]string) (models.Record, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", store.ErrValidation)
	}
	for _, guarded := range []string{models.FieldPasswordHash, models.FieldCreatedAt} {
		if _, ok := fields[guarded]; ok {
			return nil, fmt.Errorf("%w: field %q cannot be updated", store.ErrValidation, guarded)
		}
	}
	if email, ok := fields[models.FieldEmail]; ok && email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email address", store.ErrValidation)
		}
	}

	rec, err := s.store.Update(ctx, username, fields)
	if err != nil {
		return nil, err
	}
	return rec.Sanitized(), nil
}

// ChangePassword verifies the current password, then hashes and stores
// the new one.
func (s *UserService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if _, err := s.checkCredential(ctx, username, currentPassword); err != nil {
		return err
	}
	if err := validatePassword(newPassword, username, ""); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.store.Update(ctx, username, map[string]string{
		models.FieldPasswordHash: passwordHash,
	}); err != nil {
		return err
	}

	log.Info().Str("username", username).Msg("password changed")
	return nil
}

// Authenticate verifies a user's credentials and returns the record on
// success. Unknown-username and wrong-password outcomes stay
// distinguishable here for the audit log; the HTTP layer flattens them
// into one generic response.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.Record, error) {
	rec, err := s.checkCredential(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return rec.Sanitized(), nil
}

// DeleteUser removes a user record.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("user deleted")
	return nil
}

// checkCredential fetches the record and verifies the candidate against
// the stored hash. When the username does not exist, a dummy
// verification runs anyway so the caller's response time does not
// betray which usernames are taken.
func (s *UserService) checkCredential(ctx context.Context, username, candidate string) (models.Record, error) {
	if username == "" || candidate == "" {
		return nil, fmt.Errorf("%w: username and password must be supplied", store.ErrValidation)
	}

	rec, err := s.store.Fetch(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.DummyVerify()
			log.Warn().Str("username", username).Msg("credential check for unknown user")
		}
		return nil, err
	}

	encoded, ok := rec[models.FieldPasswordHash]
	if !ok {
		s.hasher.DummyVerify()
		log.Warn().Str("username", username).Msg("record has no credential")
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidCredential, username)
	}

	match, err := s.hasher.Verify(candidate, encoded)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !match {
		log.Warn().Str("username", username).Msg("credential mismatch")
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidCredential, username)
	}
	return rec, nil
}

func validatePassword(password, username, email string) error {
	if password == "" {
		return fmt.Errorf("%w: password must be supplied", store.ErrValidation)
	}
	score := zxcvbn.PasswordStrength(password, []string{username, email}).Score
	if score < minPasswordScore {
		return fmt.Errorf("%w: password is not strong enough (score %d, need >= %d)",
			store.ErrValidation, score, minPasswordScore)
	}
	return nil
}
