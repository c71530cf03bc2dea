package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/anxiouscrypt/smapp/internal/models"
)

// createIfAbsent claims the record key and writes all fields in one
// atomic step, so two racing creates cannot both win and a failed
// create never leaves a partial record behind.
var createIfAbsent = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// KeyPrefix namespaces record keys, e.g. "user:" + username.
	KeyPrefix string
	// OpTimeout bounds every backend call. Zero means DefaultOpTimeout.
	OpTimeout time.Duration
	// MaxRetries is the number of additional attempts made when the
	// backend is unreachable, with exponential backoff between them.
	MaxRetries uint64
	// RetryBase is the initial backoff delay. Zero means DefaultRetryBase.
	RetryBase time.Duration
	// AllowOverwrite switches Create to the legacy replace-on-create
	// behavior instead of rejecting with ErrAlreadyExists.
	AllowOverwrite bool
}

const (
	DefaultKeyPrefix = "user:"
	DefaultOpTimeout = 2 * time.Second
	DefaultRetryBase = 50 * time.Millisecond
)

// RedisStore implements UserRecordStore over Redis hashes: one hash per
// record, addressed by prefix + username. The client is injected and
// owned by the caller; the store itself is stateless.
type RedisStore struct {
	rdb  redis.UniversalClient
	opts RedisOptions
}

var _ UserRecordStore = (*RedisStore)(nil)

// NewRedisStore constructs a RedisStore on top of an existing client.
func NewRedisStore(rdb redis.UniversalClient, opts RedisOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	return &RedisStore{rdb: rdb, opts: opts}
}

func (s *RedisStore) key(username string) string {
	return s.opts.KeyPrefix + username
}

// Create writes the record, claiming the key atomically unless the
// store was configured with AllowOverwrite.
func (s *RedisStore) Create(ctx context.Context, username string, fields map[string]string) (models.Record, error) {
	if err := validateKey(username); err != nil {
		return nil, err
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	rec := make(models.Record, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec[models.FieldUsername] = username

	args := make([]interface{}, 0, len(rec)*2)
	for k, v := range rec {
		args = append(args, k, v)
	}

	err := s.do(ctx, func(ctx context.Context) error {
		if s.opts.AllowOverwrite {
			// Legacy mode: replace the whole record. DEL+HSET run inside
			// MULTI/EXEC so no reader observes the intermediate state.
			pipe := s.rdb.TxPipeline()
			pipe.Del(ctx, s.key(username))
			pipe.HSet(ctx, s.key(username), args...)
			_, err := pipe.Exec(ctx)
			return err
		}
		n, err := createIfAbsent.Run(ctx, s.rdb, []string{s.key(username)}, args...).Int()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %q", ErrAlreadyExists, username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Fetch reads the whole hash. Redis cannot distinguish a missing key
// from an empty hash, and an existing record always carries at least
// its username field, so an empty result means absence.
func (s *RedisStore) Fetch(ctx context.Context, username string) (models.Record, error) {
	if err := validateKey(username); err != nil {
		return nil, err
	}

	var rec models.Record
	err := s.do(ctx, func(ctx context.Context) error {
		raw, err := s.rdb.HGetAll(ctx, s.key(username)).Result()
		if err != nil {
			return err
		}
		if len(raw) == 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		rec = models.Record(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update merges the delta into an existing record and reads back the
// full merged field set. The existence check and the write are separate
// commands; concurrent updates to the same record race per field, last
// write wins.
func (s *RedisStore) Update(ctx context.Context, username string, fields map[string]string) (models.Record, error) {
	if err := validateKey(username); err != nil {
		return nil, err
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	var rec models.Record
	err := s.do(ctx, func(ctx context.Context) error {
		exists, err := s.rdb.Exists(ctx, s.key(username)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		if len(fields) > 0 {
			args := make([]interface{}, 0, len(fields)*2)
			for k, v := range fields {
				args = append(args, k, v)
			}
			if err := s.rdb.HSet(ctx, s.key(username), args...).Err(); err != nil {
				return err
			}
		}
		raw, err := s.rdb.HGetAll(ctx, s.key(username)).Result()
		if err != nil {
			return err
		}
		rec = models.Record(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record.
func (s *RedisStore) Delete(ctx context.Context, username string) error {
	if err := validateKey(username); err != nil {
		return err
	}
	return s.do(ctx, func(ctx context.Context) error {
		n, err := s.rdb.Del(ctx, s.key(username)).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return nil
	})
}

// do bounds a backend interaction with the configured timeout and
// retries transient failures with exponential backoff. Sentinel errors
// from fn pass through untouched; everything else is classified as
// ErrBackendUnavailable.
func (s *RedisStore) do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.opts.MaxRetries, retry.NewExponential(s.opts.RetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
		defer cancel()
		err := fn(opCtx)
		switch {
		case err == nil:
			return nil
		case isSentinel(err):
			return err
		default:
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
		}
	})
}

func isSentinel(err error) bool {
	for _, sentinel := range []error{ErrNotFound, ErrAlreadyExists, ErrInvalidCredential, ErrValidation} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
