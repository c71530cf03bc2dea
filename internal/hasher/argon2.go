package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params holds the memory and CPU cost factors for argon2id.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params balance hardness against a typical container's
// CPU and memory allotment.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2Hasher is an argon2id PasswordHasher producing PHC-encoded
// hashes of the form $argon2id$v=19$m=...,t=...,p=...$salt$hash.
type Argon2Hasher struct {
	params Argon2Params
}

var _ PasswordHasher = (*Argon2Hasher)(nil)

// NewArgon2Hasher creates an Argon2Hasher. Zero params select defaults.
func NewArgon2Hasher(p Argon2Params) *Argon2Hasher {
	if p == (Argon2Params{}) {
		p = DefaultArgon2Params
	}
	return &Argon2Hasher{params: p}
}

// Hash derives a PHC-encoded argon2id hash with a fresh random salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify re-derives the key with the parameters embedded in the encoded
// hash and compares in constant time.
func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decodeArgon2(encoded)
	if err != nil {
		return false, fmt.Errorf("argon2 verify: %w", err)
	}

	other := argon2.IDKey([]byte(password), salt,
		p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// DummyVerify derives a key at the configured cost and discards it.
func (h *Argon2Hasher) DummyVerify() {
	salt := make([]byte, h.params.SaltLength)
	argon2.IDKey([]byte("dummy password"), salt,
		h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
}

func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("malformed hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, err
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, err
	}
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
